package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/gpu-fan-control/internal/domain/release"
)

// FileDigest returns the lowercase hex SHA-256 digest of a file.
func FileDigest(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrFilesystem, path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("%w: hash %s: %w", ErrFilesystem, path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify reports whether the file at path matches the expected digest.
// It never deletes or moves the file.
func Verify(path string, expected release.Digest) bool {
	actual, err := FileDigest(path)
	if err != nil {
		return false
	}

	return expected.Equal(actual)
}
