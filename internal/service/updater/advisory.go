package updater

import (
	"context"
	"net/http"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// NotifyIfOutdated runs the advisory version check and logs a hint when a newer
// version is published. It returns whether the build is outdated.
func NotifyIfOutdated(
	ctx context.Context,
	settings *config.UpdateConfig,
	build version.Build,
	httpClient *http.Client,
) bool {
	ctx = logger.WithName(ctx, "version-check")

	client := NewClientFromConfig(settings, httpClient)

	isOlder, remote := client.CheckRemoteVersion(ctx, settings.RepositoryURL, settings.VersionManifest, build.Version)
	if isOlder {
		logger.InfoKV(ctx, "A newer version is available, run with --update to install it",
			"current", build.Version, "latest", remote)

		return true
	}

	logger.DebugKV(ctx, "The build is up to date", "current", build.Version, "latest", remote)

	return false
}
