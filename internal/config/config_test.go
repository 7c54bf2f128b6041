package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and rejection of inconsistent values.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings get every default.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, VendorAuto, cfg.Vendor)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultCurve(), cfg.Curve)
	require.Equal(t, CommitSwap, cfg.Update.CommitStrategy)
	require.Equal(t, DefaultTimeout, cfg.Update.Timeout)
	require.Equal(t, "gpu-fan-control-static", cfg.Update.FallbackAsset)
	require.Equal(t, DefaultChecksumAsset, cfg.Update.ChecksumAsset)

	// Unknown vendor.
	require.ErrorIs(t, Validate(&Config{Vendor: "intel"}), errUnknownVendor)

	// Unknown strategy.
	cfg = &Config{Update: UpdateConfig{CommitStrategy: "overwrite"}}
	require.ErrorIs(t, Validate(cfg), errUnknownStrategy)

	// Curve out of range.
	require.ErrorIs(t, Validate(&Config{Curve: []int{10, 120}}), errInvalidCurve)

	// Negative retries.
	cfg = &Config{Update: UpdateConfig{Retries: -1}}
	require.ErrorIs(t, Validate(cfg), errInvalidNumber)

	// Bad URL.
	cfg = &Config{Update: UpdateConfig{ReleaseAPIURL: "not a url"}}
	require.Error(t, Validate(cfg))

	// Bad log level.
	require.Error(t, Validate(&Config{LogLevel: "chatty"}))

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Vendor:       VendorNvidia,
		GPUIndex:     1,
		FanCount:     3,
		PollInterval: 2 * time.Second,
		Curve:        []int{15, 50, 100},
		Headless:     true,
		Update: UpdateConfig{
			ReleaseAPIURL:  "https://updates.local/releases/latest",
			CommitStrategy: CommitReplace,
			Retries:        2,
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Vendor, loaded.Vendor)
	require.Equal(t, cfg.GPUIndex, loaded.GPUIndex)
	require.Equal(t, cfg.FanCount, loaded.FanCount)
	require.Equal(t, cfg.PollInterval, loaded.PollInterval)
	require.Equal(t, cfg.Curve, loaded.Curve)
	require.True(t, loaded.Headless)
	require.Equal(t, cfg.Update.ReleaseAPIURL, loaded.Update.ReleaseAPIURL)
	require.Equal(t, CommitReplace, loaded.Update.CommitStrategy)
	require.Equal(t, 2, loaded.Update.Retries)

	// File exists with restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadMissingFile verifies that a missing settings file yields defaults.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultReleaseAPIURL, cfg.Update.ReleaseAPIURL)
	require.Equal(t, DefaultCurve(), cfg.Curve)
	require.False(t, cfg.Headless)
}

// TestLoadReadsDurationStrings verifies human-readable durations in YAML.
func TestLoadReadsDurationStrings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "poll_interval: 3s\nupdate:\n  timeout: 45s\n  commit_strategy: replace\n"
	require.NoError(t, os.WriteFile(path, []byte(body), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, 45*time.Second, cfg.Update.Timeout)
	require.Equal(t, CommitReplace, cfg.Update.CommitStrategy)
}

// TestLoadEnvironmentOverride checks FANCTL_* variables win over the file.
func TestLoadEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vendor: nvidia\n"), DefaultFilePermissions))

	t.Setenv("FANCTL_VENDOR", "amdgpu")
	t.Setenv("FANCTL_UPDATE_RETRIES", "3")
	t.Setenv("GITHUB_TOKEN", "token-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, VendorAMD, cfg.Vendor)
	require.Equal(t, 3, cfg.Update.Retries)
	require.Equal(t, "token-from-env", cfg.Update.GitHubToken)
}

// TestDefault ensures the default configuration is usable as is.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	require.NoError(t, Validate(cfg))
}

// TestSaveNil verifies Save rejects a nil configuration.
func TestSaveNil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}
