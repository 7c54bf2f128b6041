package updater

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
)

// FetchChecksums downloads the release descriptor and its checksum manifest.
func (c *Client) FetchChecksums(ctx context.Context, releaseAPIURL string) (release.Checksums, error) {
	descriptor, err := c.FetchRelease(ctx, releaseAPIURL)
	if err != nil {
		return nil, err
	}

	return c.ChecksumsForRelease(ctx, descriptor)
}

// ChecksumsForRelease downloads the checksum manifest attached to a release.
// A release without the manifest yields an empty mapping and no error.
// Digests keep their published quoting; use Digest.Unquote to compare them.
func (c *Client) ChecksumsForRelease(ctx context.Context, descriptor *release.Release) (release.Checksums, error) {
	asset, ok := descriptor.FindAsset(c.checksumAsset)
	if !ok {
		logger.WarnKV(ctx, "Release has no checksum manifest", "asset", c.checksumAsset)

		return release.Checksums{}, nil
	}

	data, err := c.fetchDocument(ctx, asset.DownloadURL, acceptBinary, false)
	if err != nil {
		return nil, err
	}

	checksums := make(release.Checksums)
	if err = json.Unmarshal(data, &checksums); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestParse, c.checksumAsset, err)
	}

	return checksums, nil
}
