package updater

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
)

// FetchRelease downloads the release descriptor. Missing assets are not an error.
func (c *Client) FetchRelease(ctx context.Context, releaseAPIURL string) (*release.Release, error) {
	data, err := c.fetchDocument(ctx, releaseAPIURL, acceptGitHubJSON, true)
	if err != nil {
		return nil, err
	}

	var descriptor release.Release
	if err = json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("%w: release descriptor: %w", ErrManifestParse, err)
	}

	logger.DebugKV(ctx, "Fetched release", "tag", descriptor.TagName, "assets", len(descriptor.Assets))

	return &descriptor, nil
}

// ResolveAsset returns the asset named variant, or fallback when variant is absent.
func (c *Client) ResolveAsset(
	ctx context.Context,
	releaseAPIURL string,
	variant string,
	fallback string,
) (*release.Asset, error) {
	descriptor, err := c.FetchRelease(ctx, releaseAPIURL)
	if err != nil {
		return nil, err
	}

	return selectAsset(ctx, descriptor, variant, fallback)
}

// selectAsset picks the asset for the build and logs which name matched.
func selectAsset(ctx context.Context, descriptor *release.Release, variant, fallback string) (*release.Asset, error) {
	asset, ok := descriptor.SelectAsset(variant, fallback)
	if !ok {
		return nil, fmt.Errorf("%w: tried %q and %q", ErrAssetNotFound, variant, fallback)
	}

	if asset.Name != variant {
		logger.WarnKV(ctx, "No asset for this build variant, using fallback",
			"variant", variant, "asset", asset.Name)
	}

	return asset, nil
}
