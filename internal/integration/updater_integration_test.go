package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/service/updater"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// TestUpdater_Run_FetchesVerifiesAndCommits serves a release over HTTP and
// verifies the binary is replaced using settings loaded from a config file.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestUpdater_Run_FetchesVerifiesAndCommits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Prepare the published binary and its double-encoded checksum manifest.
	build := version.Build{Version: "1.0.0", FanCount: 3, Static: true}
	assetName := build.VariantName()
	assetBody := []byte("#!/bin/sh\necho new gpu-fan-control\n")
	sum := sha256.Sum256(assetBody)
	digest := `"` + hex.EncodeToString(sum[:]) + `"`

	checksums, err := json.Marshal(map[string]string{assetName: digest})
	require.NoError(t, err)

	// Setup HTTP server for the release API, assets and version manifest.
	var ts *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/api/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(release.Release{
			TagName: "v1.1.0",
			Assets: []release.Asset{
				{Name: version.FallbackVariantName(), DownloadURL: ts.URL + "/assets/fallback"},
				{Name: assetName, DownloadURL: ts.URL + "/assets/" + assetName},
				{Name: config.DefaultChecksumAsset, DownloadURL: ts.URL + "/assets/checksums.json"},
			},
		})
	})
	mux.HandleFunc("/assets/"+assetName, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(assetBody)
	})
	mux.HandleFunc("/assets/checksums.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(checksums)
	})
	mux.HandleFunc("/raw/main/version.toml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[package]\nname = \"gpu-fan-control\"\nversion = \"1.1.0\"\n"))
	})

	ts = httptest.NewServer(mux)
	defer ts.Close()

	// Create configuration file pointing to test HTTP server.
	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	cfg := config.Default()
	cfg.Update.RepositoryURL = ts.URL
	cfg.Update.ReleaseAPIURL = ts.URL + "/api/releases/latest"
	cfg.Update.CommitStrategy = config.CommitReplace

	require.NoError(t, config.Save(cfgPath, cfg))

	loaded, err := config.Load(cfgPath)
	require.NoError(t, err)

	// The advisory check sees the newer release.
	require.True(t, updater.NotifyIfOutdated(context.Background(), &loaded.Update, build, nil))

	// Install the current binary and run the update.
	binary := filepath.Join(dir, assetName)
	require.NoError(t, os.WriteFile(binary, []byte("old"), 0o755))

	err = updater.Run(context.Background(), &updater.Options{
		Build:      build,
		Settings:   &loaded.Update,
		BinaryPath: binary,
		Processes:  func() ([]ps.Process, error) { return nil, nil },
	})
	require.NoError(t, err)

	// Verify the binary holds exactly the published bytes.
	got, err := os.ReadFile(binary)
	require.NoError(t, err)
	require.Equal(t, assetBody, got)

	info, err := os.Stat(binary)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.NoFileExists(t, binary+updater.DownloadSuffix)

	// The new build is no longer outdated.
	require.False(t, updater.NotifyIfOutdated(context.Background(), &loaded.Update,
		version.Build{Version: "1.1.0"}, nil))
}
