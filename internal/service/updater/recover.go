package updater

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/repository/journal"
)

// Recover repairs an update that was interrupted during a previous run.
//
// A verified entry whose final path is missing means the old binary was deleted
// but the new one never renamed; the download is checked again and moved into
// place. Every other leftover download is discarded. The journal is cleared on
// success.
func Recover(ctx context.Context, repo journal.Repository) error {
	ctx = logger.WithName(ctx, "recover")

	entry, err := repo.Load(ctx)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return nil
		}

		return err
	}

	logger.InfoKV(ctx, "Found an interrupted update",
		"stage", entry.Stage, "final", entry.FinalPath, "started_at", entry.StartedAt)

	if err = recoverEntry(ctx, entry); err != nil {
		return err
	}

	return repo.Clear(ctx)
}

// recoverEntry brings the filesystem back to a consistent state for entry.
// A leftover download is discarded only while the final binary exists.
func recoverEntry(ctx context.Context, entry *journal.Entry) error {
	var (
		finalExists = fileExists(entry.FinalPath)
		tempExists  = entry.TempPath != "" && fileExists(entry.TempPath)
	)

	switch {
	case finalExists && tempExists:
		if err := Discard(entry.TempPath); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Discarded the leftover download", "path", entry.TempPath)

		return nil
	case finalExists:
		return nil
	case entry.Stage == release.StageVerified && tempExists:
		if !Verify(entry.TempPath, release.Digest(entry.Digest)) {
			return fmt.Errorf("%w: %s no longer matches its digest", ErrChecksumMismatch, entry.TempPath)
		}

		if err := os.Rename(entry.TempPath, entry.FinalPath); err != nil {
			return fmt.Errorf("%w: rename %s: %w", ErrFilesystem, entry.TempPath, err)
		}

		logger.InfoKV(ctx, "Completed the interrupted update", "path", entry.FinalPath)

		return nil
	default:
		return fmt.Errorf("%w: %s", errNoExecutable, entry.FinalPath)
	}
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// RecoverBinary repairs an interrupted update of the binary at binaryPath; an
// empty path means the running executable. A path ending in DownloadSuffix
// stands for the binary it was downloaded for.
func RecoverBinary(ctx context.Context, binaryPath string) error {
	finalPath, err := resolveBinaryPath(binaryPath)
	if err != nil {
		return err
	}

	return Recover(ctx, journal.NewFileRepository(journal.PathFor(finalPath)))
}
