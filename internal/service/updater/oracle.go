package updater

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
)

// unknownRemoteVersion is reported when the remote version cannot be determined.
const unknownRemoteVersion = "0.0.0"

// versionManifest is the subset of the manifest holding the version.
type versionManifest struct {
	// Version is a top-level version key.
	Version string `toml:"version"`
	// Package holds a [package] table with its own version key.
	Package struct {
		Version string `toml:"version"`
	} `toml:"package"`
}

// CheckRemoteVersion reports whether compiledVersion is older than the version
// published in the repository manifest, and the remote version itself.
// It never fails: any problem degrades to (false, "0.0.0") with a warning.
func (c *Client) CheckRemoteVersion(
	ctx context.Context,
	repoURL string,
	manifestPath string,
	compiledVersion string,
) (bool, string) {
	manifestURL, err := url.JoinPath(repoURL, "raw", "main", manifestPath)
	if err != nil {
		return degradedVersionCheck(ctx, fmt.Errorf("%w: %w", ErrNetwork, err))
	}

	data, err := c.fetchDocument(ctx, manifestURL, "text/plain", false)
	if err != nil {
		return degradedVersionCheck(ctx, err)
	}

	remote, err := ExtractVersion(data)
	if err != nil {
		return degradedVersionCheck(ctx, err)
	}

	isOlder, err := release.IsOlder(compiledVersion, remote)
	if err != nil {
		return degradedVersionCheck(ctx, fmt.Errorf("%w: %w", ErrManifestParse, err))
	}

	logger.DebugKV(ctx, "Compared versions",
		"compiled", compiledVersion, "remote", remote, "older", isOlder)

	return isOlder, remote
}

// degradedVersionCheck is the single fallback of the advisory check.
func degradedVersionCheck(ctx context.Context, cause error) (bool, string) {
	logger.WarnKV(ctx, "Unable to check for a newer version", "error", cause)

	return false, unknownRemoteVersion
}

// ExtractVersion returns the version string of a TOML manifest. Documents that
// are not valid TOML are scanned for the first line starting with "version",
// whose value must be double-quoted.
func ExtractVersion(data []byte) (string, error) {
	var manifest versionManifest
	if err := toml.Unmarshal(data, &manifest); err == nil {
		switch {
		case manifest.Version != "":
			return strings.TrimSpace(manifest.Version), nil
		case manifest.Package.Version != "":
			return strings.TrimSpace(manifest.Package.Version), nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "version") {
			continue
		}

		_, value, found := strings.Cut(line, "=")
		if !found {
			return "", fmt.Errorf("%w: %q has no value", ErrManifestParse, line)
		}

		value = strings.TrimSpace(value)
		if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
			return "", fmt.Errorf("%w: version %s is not quoted", ErrManifestParse, value)
		}

		return strings.TrimSpace(value[1 : len(value)-1]), nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrManifestParse, err)
	}

	return "", fmt.Errorf("%w: no version key", ErrManifestParse)
}
