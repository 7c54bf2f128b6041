package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/gpu-fan-control/internal/logger"
)

const (
	// chunkSize is the read buffer of a download; the progress bar advances per chunk.
	chunkSize = 32 * 1024

	// DownloadSuffix is appended to the binary path to form the download path.
	DownloadSuffix = ".download"

	// ExecutableMode is the mode of a downloaded binary.
	ExecutableMode os.FileMode = 0o755

	// downloadFileMode is the mode of a download in progress.
	downloadFileMode os.FileMode = 0o600

	// progressThrottle limits progress bar redraws.
	progressThrottle = 100 * time.Millisecond

	// progressWidth is the width of the progress bar in columns.
	progressWidth = 40
)

// Download streams url into destPath and returns the number of bytes written.
// The response must carry Content-Length. The file is synced, closed and made
// executable before returning; any error removes destPath.
func (c *Client) Download(ctx context.Context, url, destPath string, progress io.Writer) (written int64, err error) {
	defer func() {
		if err != nil {
			removeQuietly(ctx, destPath)
		}
	}()

	response, err := c.get(ctx, url, acceptBinary, false)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	expected := response.ContentLength
	if expected < 0 {
		return 0, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, errMissingContentLength)
	}

	file, err := os.OpenFile(filepath.Clean(destPath), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, downloadFileMode)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", ErrFilesystem, destPath, err)
	}

	bar := newProgressBar(progress, expected, filepath.Base(url))

	written, err = copyChunks(file, response.Body, bar)
	if err != nil {
		_ = file.Close()

		return written, err
	}

	_ = bar.Finish()

	if err = file.Sync(); err != nil {
		_ = file.Close()

		return written, fmt.Errorf("%w: sync %s: %w", ErrFilesystem, destPath, err)
	}

	if err = file.Close(); err != nil {
		return written, fmt.Errorf("%w: close %s: %w", ErrFilesystem, destPath, err)
	}

	if err = os.Chmod(destPath, ExecutableMode); err != nil {
		return written, fmt.Errorf("%w: chmod %s: %w", ErrFilesystem, destPath, err)
	}

	if written != expected {
		logger.WarnKV(ctx, "Downloaded size differs from Content-Length",
			"expected", expected, "written", written)
	}

	logger.InfoKV(ctx, "Downloaded file", "path", destPath, "bytes", written)

	return written, nil
}

// copyChunks copies src to dst in chunkSize pieces and advances bar after each.
func copyChunks(dst io.Writer, src io.Reader, bar *progressbar.ProgressBar) (int64, error) {
	var (
		buffer  = make([]byte, chunkSize)
		written int64
	)

	for {
		n, readErr := src.Read(buffer)
		if n > 0 {
			if _, err := dst.Write(buffer[:n]); err != nil {
				return written, fmt.Errorf("%w: write: %w", ErrFilesystem, err)
			}

			written += int64(n)
			_ = bar.Add(n)
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}

		if readErr != nil {
			return written, fmt.Errorf("%w: read body: %w", ErrNetwork, readErr)
		}
	}
}

// newProgressBar renders byte progress to w; a nil writer discards it.
func newProgressBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

// removeQuietly deletes path, logging failures other than "not found".
func removeQuietly(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove file", "path", path, "error", err)
	}
}
