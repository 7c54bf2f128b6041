package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/curve"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
	"github.com/oshokin/gpu-fan-control/internal/service/fan"
	"github.com/oshokin/gpu-fan-control/internal/service/monitor"
	"github.com/oshokin/gpu-fan-control/internal/service/sensor"
	"github.com/oshokin/gpu-fan-control/internal/service/updater"
	"github.com/oshokin/gpu-fan-control/internal/ui/display"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// flags holds the command line values.
type flags struct {
	// configPath to the configuration YAML file.
	configPath string
	// update replaces the binary with the latest release and exits.
	update bool
	// skipVersionCheck disables the advisory check at startup.
	skipVersionCheck bool
	// logLevel overrides log_level.
	logLevel string
	// vendor overrides vendor.
	vendor string
	// gpu overrides gpu_index.
	gpu int
	// fans overrides fan_count.
	fans int
	// interval overrides poll_interval.
	interval time.Duration
	// commitStrategy overrides update.commit_strategy.
	commitStrategy string
	// noDisplay overrides headless.
	noDisplay bool
}

var (
	// cliFlags are bound in init.
	cliFlags flags

	// rootCmd represents the base command: monitor the GPU or update the binary.
	rootCmd = &cobra.Command{
		Use:          version.BinaryBaseName,
		Short:        "Control GPU fan speed from the GPU temperature",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			build := version.Current()

			if cliFlags.update {
				return updater.Run(ctx, &updater.Options{
					Build:    build,
					Settings: &cfg.Update,
					Progress: os.Stderr,
				})
			}

			if err = updater.RecoverBinary(ctx, ""); err != nil {
				logger.WarnKV(ctx, "Unable to repair the previous update", "error", err)
			}

			if !cliFlags.skipVersionCheck {
				updater.NotifyIfOutdated(ctx, &cfg.Update, build, nil)
			}

			return runMonitor(ctx, cfg, build)
		},
	}
)

// Execute runs the gpu-fan-control CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the settings file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cliFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.LogLevel = cliFlags.logLevel
	}

	if changed("vendor") {
		cfg.Vendor = cliFlags.vendor
	}

	if changed("gpu") {
		cfg.GPUIndex = cliFlags.gpu
	}

	if changed("fans") {
		cfg.FanCount = cliFlags.fans
	}

	if changed("interval") {
		cfg.PollInterval = cliFlags.interval
	}

	if changed("commit-strategy") {
		cfg.Update.CommitStrategy = cliFlags.commitStrategy
	}

	if changed("no-display") {
		cfg.Headless = cliFlags.noDisplay
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	return cfg, nil
}

// runMonitor wires the sensor, fan controller and display into the polling loop.
func runMonitor(ctx context.Context, cfg *config.Config, build version.Build) error {
	runner := common.ExecRunner{}

	reader, err := sensor.New(ctx, cfg, runner)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}

	fanCount := build.FanCount
	if cfg.FanCount > 0 {
		fanCount = cfg.FanCount
	}

	options := &monitor.Options{
		Sensor:       reader,
		Fan:          fan.New(reader.Vendor(), runner, cfg.GPUIndex, fanCount),
		Curve:        curve.Curve(cfg.Curve),
		PollInterval: cfg.PollInterval,
		RequireRoot:  common.RequireRoot,
	}

	if !cfg.Headless && term.IsTerminal(int(os.Stdout.Fd())) {
		options.Screen = display.New(os.Stdout)
	}

	return monitor.Run(ctx, options)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	f := rootCmd.Flags()
	f.StringVarP(&cliFlags.configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	f.BoolVarP(&cliFlags.update, "update", "u", false, "download and install the latest release, then exit")
	f.BoolVarP(&cliFlags.skipVersionCheck, "skip-version-check", "s", false, "do not check for a newer version at startup")
	f.StringVar(&cliFlags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&cliFlags.vendor, "vendor", config.VendorAuto, "gpu vendor: auto, nvidia, amdgpu")
	f.IntVar(&cliFlags.gpu, "gpu", 0, "gpu index passed to vendor tools")
	f.IntVar(&cliFlags.fans, "fans", 0, "number of fans (default: compiled-in value)")
	f.DurationVar(&cliFlags.interval, "interval", config.DefaultPollInterval, "delay between temperature reads")
	f.StringVar(&cliFlags.commitStrategy, "commit-strategy", config.CommitSwap, "how to replace the binary: swap or replace")
	f.BoolVar(&cliFlags.noDisplay, "no-display", false, "log readings instead of drawing on the terminal")
}
