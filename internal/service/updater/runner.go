package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/repository/journal"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// errSettingsNotInitialised is returned when Run gets no update settings.
var errSettingsNotInitialised = errors.New("update settings are not initialized")

// Options are inputs accepted by the updater entry point.
type Options struct {
	// Build identifies the running binary and its release variant.
	Build version.Build
	// Settings are the update settings from the config file.
	Settings *config.UpdateConfig
	// BinaryPath is the binary to replace; empty means the running executable.
	BinaryPath string
	// Progress receives the download progress bar; nil hides it.
	Progress io.Writer
	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
	// Processes overrides the process listing of the instance guard.
	Processes ProcessLister
	// Committer overrides the commit strategy of Settings.
	Committer Committer
}

// runner holds the state of a single update execution.
type runner struct {
	opts       *Options           // Inputs of this run.
	client     *Client            // Release host client.
	journal    journal.Repository // Commit journal next to the binary.
	finalPath  string             // Binary being replaced.
	tempPath   string             // Download location next to the binary.
	actor      *common.Actor      // Who runs the update, for the journal.
	descriptor *release.Release   // Latest release descriptor.
	asset      *release.Asset     // Selected release asset.
	digest     release.Digest     // Published digest of the asset.
	committer  Committer          // Strategy moving the download in place.
}

// Run downloads, verifies and installs the latest release over the binary.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "updater")

	u, err := newRunner(ctx, opts)
	if err != nil {
		logger.ErrorKV(ctx, "Updater failed to start", "error", err)

		return err
	}

	if err = u.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update failed", "error", err)

		return err
	}

	logger.InfoKV(ctx, "Update complete", "version", u.descriptor.TagName, "asset", u.asset.Name)

	return nil
}

// newRunner resolves paths, checks for other instances and repairs leftovers.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil || opts.Settings == nil {
		return nil, errSettingsNotInitialised
	}

	finalPath, err := resolveBinaryPath(opts.BinaryPath)
	if err != nil {
		return nil, err
	}

	if err = EnsureSingleInstance(ctx, finalPath, opts.Processes); err != nil {
		return nil, err
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect the current user", "error", err)
	}

	u := &runner{
		opts:      opts,
		client:    NewClientFromConfig(opts.Settings, opts.HTTPClient),
		journal:   journal.NewFileRepository(journal.PathFor(finalPath)),
		finalPath: finalPath,
		tempPath:  finalPath + DownloadSuffix,
		actor:     actor,
	}

	if err = Recover(ctx, u.journal); err != nil {
		return nil, fmt.Errorf("recover previous update: %w", err)
	}

	return u, nil
}

// Run executes the pipeline for this runner instance:
// 1) Resolve the release asset.
// 2) Look up its published digest.
// 3) Download it next to the binary.
// 4) Verify the download.
// 5) Commit it over the binary.
func (u *runner) Run(ctx context.Context) error {
	logger.Info(ctx, "Looking up the latest release")

	if err := u.resolve(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading the release asset", "asset", u.asset.Name, "url", u.asset.DownloadURL)

	if _, err := u.client.Download(ctx, u.asset.DownloadURL, u.tempPath, u.opts.Progress); err != nil {
		return fmt.Errorf("download %s: %w", u.asset.Name, err)
	}

	u.advance(ctx, release.StageDownloaded)

	logger.Info(ctx, "Verifying the checksum of the download")

	if !Verify(u.tempPath, u.digest) {
		u.discard(ctx)

		return fmt.Errorf("%s: %w", u.asset.Name, ErrChecksumMismatch)
	}

	u.advance(ctx, release.StageVerified)

	logger.InfoKV(ctx, "Replacing the binary", "path", u.finalPath, "strategy", u.opts.Settings.CommitStrategy)

	if err := u.committer.Commit(ctx, u.finalPath, u.tempPath); err != nil {
		if err = u.commitFailed(ctx, err); err != nil {
			return err
		}
	}

	if err := u.journal.Clear(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to clear the update journal", "error", err)
	}

	return nil
}

// resolve selects the asset, its digest and the committer.
func (u *runner) resolve(ctx context.Context) error {
	settings := u.opts.Settings

	descriptor, err := u.client.FetchRelease(ctx, settings.ReleaseAPIURL)
	if err != nil {
		return fmt.Errorf("fetch release: %w", err)
	}

	u.descriptor = descriptor

	u.asset, err = selectAsset(ctx, descriptor, u.opts.Build.VariantName(), settings.FallbackAsset)
	if err != nil {
		return err
	}

	checksums, err := u.client.ChecksumsForRelease(ctx, descriptor)
	if err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}

	digest, ok := checksums.Lookup(u.asset.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChecksumUnavailable, u.asset.Name)
	}

	u.digest = digest

	if u.opts.Committer != nil {
		u.committer = u.opts.Committer

		return nil
	}

	u.committer, err = NewCommitter(settings.CommitStrategy, digest)
	if err != nil {
		return err
	}

	return nil
}

// advance records the stage in the journal; failures are logged only.
func (u *runner) advance(ctx context.Context, stage release.Stage) {
	if err := u.journal.Save(ctx, u.entry(stage)); err != nil {
		logger.WarnKV(ctx, "Unable to write the update journal", "stage", stage, "error", err)
	}
}

// entry describes this run at stage.
func (u *runner) entry(stage release.Stage) *journal.Entry {
	return &journal.Entry{
		FinalPath: u.finalPath,
		TempPath:  u.tempPath,
		Digest:    u.digest.Unquote(),
		Asset:     u.asset.Name,
		Actor:     u.actor,
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
}

// discard removes a rejected download and the journal.
func (u *runner) discard(ctx context.Context) {
	if err := Discard(u.tempPath); err != nil {
		logger.WarnKV(ctx, "Unable to remove the rejected download", "error", err)
	}

	if err := u.journal.Clear(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to clear the update journal", "error", err)
	}
}

// commitFailed cleans up after a failed commit. When the old binary is still
// in place the download is discarded. When it is gone the verified download is
// moved in right away; nil means the binary was restored that way.
func (u *runner) commitFailed(ctx context.Context, cause error) error {
	if fileExists(u.finalPath) {
		u.discard(ctx)

		return fmt.Errorf("commit %s: %w", u.asset.Name, cause)
	}

	logger.WarnKV(ctx, "The binary is missing after a failed commit, restoring it from the download",
		"path", u.finalPath, "error", cause)

	if err := recoverEntry(ctx, u.entry(release.StageVerified)); err != nil {
		logger.ErrorKV(ctx, "Unable to restore the binary, run the download to complete the update",
			"path", u.finalPath, "download", u.tempPath, "error", err)

		return fmt.Errorf("commit %s: %w", u.asset.Name, errors.Join(cause, err))
	}

	return nil
}

// resolveBinaryPath returns the real path of the binary to replace. A path
// ending in DownloadSuffix resolves to the binary it was downloaded for.
func resolveBinaryPath(path string) (string, error) {
	if path == "" {
		executable, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("%w: locate executable: %w", ErrFilesystem, err)
		}

		path = executable
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: resolve %s: %w", ErrFilesystem, path, err)
		}

		resolved = filepath.Clean(path)
	}

	return strings.TrimSuffix(resolved, DownloadSuffix), nil
}
