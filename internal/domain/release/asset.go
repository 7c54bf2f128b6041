package release

// Asset is a named, independently downloadable file attached to a release.
type Asset struct {
	// Name is the file name of the asset, e.g. "gpu-fan-control-2-fans".
	Name string `json:"name"`
	// DownloadURL is the direct download location of the asset.
	DownloadURL string `json:"browser_download_url"`
	// Size is the asset size in bytes as reported by the release API.
	Size int64 `json:"size,omitempty"`
}

// Release is the "latest release" descriptor. It is transient and never persisted.
type Release struct {
	// TagName is the release tag, informational only.
	TagName string `json:"tag_name,omitempty"`
	// Assets lists the downloadable files. A missing list decodes as empty.
	Assets []Asset `json:"assets"`
}

// FindAsset returns the asset with exactly the given name.
// Matching is case-sensitive.
func (r *Release) FindAsset(name string) (*Asset, bool) {
	if r == nil || name == "" {
		return nil, false
	}

	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], true
		}
	}

	return nil, false
}

// SelectAsset prefers the asset named variant and falls back to fallback.
// It reports false when neither is present.
func (r *Release) SelectAsset(variant, fallback string) (*Asset, bool) {
	if asset, ok := r.FindAsset(variant); ok {
		return asset, true
	}

	return r.FindAsset(fallback)
}
