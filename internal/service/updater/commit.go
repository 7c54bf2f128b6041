package updater

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
)

// Committer moves a verified download over the running binary.
type Committer interface {
	// Commit replaces finalPath with tempPath.
	Commit(ctx context.Context, finalPath, tempPath string) error
}

// NewCommitter returns the committer for strategy. The digest is re-checked by
// the swap strategy while it writes the new binary.
func NewCommitter(strategy string, digest release.Digest) (Committer, error) {
	switch strategy {
	case config.CommitReplace:
		return replaceCommitter{}, nil
	case config.CommitSwap, "":
		checksum, err := hex.DecodeString(digest.Unquote())
		if err != nil {
			return nil, fmt.Errorf("%w: digest %q: %w", ErrChecksumUnavailable, digest.Unquote(), err)
		}

		return swapCommitter{checksum: checksum}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownStrategy, strategy)
	}
}

// replaceCommitter deletes the old binary and renames the new one into place.
// A crash between the two steps leaves no binary; the journal repairs that.
type replaceCommitter struct{}

// Commit removes finalPath, then renames tempPath. A failed removal aborts
// before the rename.
func (replaceCommitter) Commit(ctx context.Context, finalPath, tempPath string) error {
	if err := os.Remove(finalPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", ErrFilesystem, finalPath, err)
		}

		logger.DebugKV(ctx, "Nothing to remove at final path", "path", finalPath)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrFilesystem, tempPath, err)
	}

	return nil
}

// swapCommitter applies the new binary with go-update: the old binary is moved
// aside, the new one moved in, and the old one restored if that fails.
type swapCommitter struct {
	// checksum is the expected SHA-256 of the new binary.
	checksum []byte
}

// Commit applies tempPath over finalPath and removes tempPath afterwards.
func (s swapCommitter) Commit(ctx context.Context, finalPath, tempPath string) error {
	file, err := os.Open(filepath.Clean(tempPath))
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrFilesystem, tempPath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if err = ensureTarget(finalPath); err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: finalPath,
		TargetMode: ExecutableMode,
		Checksum:   s.checksum,
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(file, options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			logger.ErrorKV(ctx, "Failed to restore the previous binary", "error", rollbackErr)
		}

		return fmt.Errorf("%w: apply %s: %w", ErrFilesystem, finalPath, err)
	}

	_ = file.Close()

	if err = Discard(tempPath); err != nil {
		logger.WarnKV(ctx, "Unable to remove the applied download", "path", tempPath, "error", err)
	}

	return nil
}

// ensureTarget creates an empty executable at path when nothing is there, so
// go-update has a file to move aside.
func ensureTarget(path string) error {
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
		return nil
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY, ExecutableMode)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrFilesystem, path, err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrFilesystem, path, err)
	}

	return nil
}

// Discard removes a rejected or consumed download. A missing file is fine;
// other failures are returned for reporting only.
func Discard(tempPath string) error {
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", ErrFilesystem, tempPath, err)
	}

	return nil
}
