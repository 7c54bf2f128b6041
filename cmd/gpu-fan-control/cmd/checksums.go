package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/service/packager"
)

// checksumsOutput is the manifest path of the checksums command.
var checksumsOutput string

// checksumsCmd writes the checksum manifest for a set of release assets.
var checksumsCmd = &cobra.Command{
	Use:          "checksums ASSET...",
	Short:        "Write the checksum manifest for release assets",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return packager.Run(ctx, &packager.Options{
			Assets: args,
			Output: checksumsOutput,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checksumsCmd.Flags().StringVarP(&checksumsOutput, "output", "o", config.DefaultChecksumAsset, "path of the manifest to write")
	rootCmd.AddCommand(checksumsCmd)
}
