package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/gpu-fan-control/internal/domain/curve"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// Config holds the settings of a gpu-fan-control installation.
type Config struct {
	// LogLevel is the minimum level of log entries (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Vendor selects the sensor and fan driver: auto, nvidia or amdgpu.
	Vendor string `yaml:"vendor" mapstructure:"vendor"`
	// GPUIndex is the index passed to vendor tools when several GPUs are present.
	GPUIndex int `yaml:"gpu_index" mapstructure:"gpu_index"`
	// FanCount overrides the number of fans compiled into the build when positive.
	FanCount int `yaml:"fan_count" mapstructure:"fan_count"`
	// PollInterval is the delay between two sensor reads.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// Curve is the list of fan speeds (percent) matched against the temperature.
	Curve []int `yaml:"curve" mapstructure:"curve"`
	// SysRoot is the sysfs mount point used to find hwmon devices.
	SysRoot string `yaml:"sys_root" mapstructure:"sys_root"`
	// Headless disables the full-screen terminal display and logs readings instead.
	Headless bool `yaml:"headless" mapstructure:"headless"`
	// Update holds the self-update settings.
	Update UpdateConfig `yaml:"update" mapstructure:"update"`
}

// UpdateConfig holds the settings of the self-update pipeline.
type UpdateConfig struct {
	// RepositoryURL is the web URL of the source repository hosting the version manifest.
	RepositoryURL string `yaml:"repository_url" mapstructure:"repository_url"`
	// VersionManifest is the manifest path relative to {RepositoryURL}/raw/main/.
	VersionManifest string `yaml:"version_manifest" mapstructure:"version_manifest"`
	// ReleaseAPIURL is the "latest release" JSON endpoint.
	ReleaseAPIURL string `yaml:"release_api_url" mapstructure:"release_api_url"`
	// ChecksumAsset is the well-known name of the checksum manifest asset.
	ChecksumAsset string `yaml:"checksum_asset" mapstructure:"checksum_asset"`
	// FallbackAsset is the asset used when no asset matches the build variant.
	FallbackAsset string `yaml:"fallback_asset" mapstructure:"fallback_asset"`
	// CommitStrategy is either "swap" (move the old binary aside) or "replace" (delete then rename).
	CommitStrategy string `yaml:"commit_strategy" mapstructure:"commit_strategy"`
	// Timeout bounds document fetches, and connection setup of downloads.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retries is the number of extra attempts after a transient failure.
	Retries int `yaml:"retries" mapstructure:"retries"`
	// RetryBackoff is the delay before the first retry; it doubles afterwards.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// GitHubToken raises API rate limits when set. Falls back to $GITHUB_TOKEN.
	GitHubToken string `yaml:"github_token,omitempty" mapstructure:"github_token"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "gpu-fan-control.yaml"

	// EnvPrefix is the prefix of environment variables overriding settings.
	EnvPrefix = "FANCTL"

	// VendorAuto picks amdgpu when an amdgpu hwmon device exists, nvidia otherwise.
	VendorAuto = "auto"
	// VendorNvidia drives the fans through nvidia-smi and nvidia-settings.
	VendorNvidia = "nvidia"
	// VendorAMD reads amdgpu hwmon files; it does not change fan speed.
	VendorAMD = "amdgpu"

	// CommitSwap moves the old binary aside before moving the new one in.
	CommitSwap = "swap"
	// CommitReplace deletes the old binary, then renames the new one into place.
	CommitReplace = "replace"

	// DefaultPollInterval is the default delay between sensor reads.
	DefaultPollInterval = 5 * time.Second
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryBackoff is the default delay before the first retry.
	DefaultRetryBackoff = time.Second
	// DefaultSysRoot is where sysfs is normally mounted.
	DefaultSysRoot = "/sys"

	// DefaultRepositoryURL is the upstream repository.
	DefaultRepositoryURL = "https://github.com/oshokin/gpu-fan-control"
	// DefaultVersionManifest holds the version line of the main branch.
	DefaultVersionManifest = "version.toml"
	// DefaultReleaseAPIURL is the GitHub API endpoint of the latest release.
	DefaultReleaseAPIURL = "https://api.github.com/repos/oshokin/gpu-fan-control/releases/latest"
	// DefaultChecksumAsset is the checksum manifest published with every release.
	DefaultChecksumAsset = "checksums.json"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// maxFanSpeed is the upper bound of a curve entry.
	maxFanSpeed = curve.MaxSpeed
)

// DefaultCurve returns the fan speeds matched against the GPU temperature.
func DefaultCurve() []int {
	return curve.Default()
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownVendor is returned for an unsupported vendor value.
	errUnknownVendor = errors.New("unknown vendor")
	// errUnknownStrategy is returned for an unsupported commit strategy.
	errUnknownStrategy = errors.New("unknown commit strategy")
	// errInvalidCurve is returned when the curve is empty or out of range.
	errInvalidCurve = errors.New("invalid fan curve")
	// errInvalidNumber is returned for negative counts and indexes.
	errInvalidNumber = errors.New("value must not be negative")
)

// Load reads configuration from the provided path, applies environment overrides and
// validates the result. A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetConfigFile(filepath.Clean(path))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if cfg.Update.GitHubToken == "" {
		cfg.Update.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry a token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Default returns a validated configuration built from defaults only.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Validate fills unset fields with defaults and checks the rest for consistency.
//
//nolint:cyclop // A flat list of field checks reads better than split helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	switch cfg.Vendor {
	case "":
		cfg.Vendor = VendorAuto
	case VendorAuto, VendorNvidia, VendorAMD:
	default:
		return fmt.Errorf("%w: %s", errUnknownVendor, cfg.Vendor)
	}

	if cfg.GPUIndex < 0 || cfg.FanCount < 0 {
		return fmt.Errorf("gpu index and fan count: %w", errInvalidNumber)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if len(cfg.Curve) == 0 {
		cfg.Curve = DefaultCurve()
	}

	for _, speed := range cfg.Curve {
		if speed < 0 || speed > maxFanSpeed {
			return fmt.Errorf("%w: speed %d is outside 0..%d", errInvalidCurve, speed, maxFanSpeed)
		}
	}

	if cfg.SysRoot == "" {
		cfg.SysRoot = DefaultSysRoot
	}

	return validateUpdate(&cfg.Update)
}

// validateUpdate fills and checks the update section.
func validateUpdate(u *UpdateConfig) error {
	if u.RepositoryURL == "" {
		u.RepositoryURL = DefaultRepositoryURL
	}

	if u.VersionManifest == "" {
		u.VersionManifest = DefaultVersionManifest
	}

	if u.ReleaseAPIURL == "" {
		u.ReleaseAPIURL = DefaultReleaseAPIURL
	}

	if u.ChecksumAsset == "" {
		u.ChecksumAsset = DefaultChecksumAsset
	}

	if u.FallbackAsset = strings.TrimSpace(u.FallbackAsset); u.FallbackAsset == "" {
		u.FallbackAsset = version.FallbackVariantName()
	}

	switch u.CommitStrategy {
	case "":
		u.CommitStrategy = CommitSwap
	case CommitSwap, CommitReplace:
	default:
		return fmt.Errorf("%w: %s", errUnknownStrategy, u.CommitStrategy)
	}

	if u.Timeout <= 0 {
		u.Timeout = DefaultTimeout
	}

	if u.Retries < 0 {
		return fmt.Errorf("retries: %w", errInvalidNumber)
	}

	if u.RetryBackoff <= 0 {
		u.RetryBackoff = DefaultRetryBackoff
	}

	for _, raw := range []string{u.RepositoryURL, u.ReleaseAPIURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid update URL: %w", err)
		}
	}

	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("vendor", VendorAuto)
	v.SetDefault("gpu_index", 0)
	v.SetDefault("fan_count", 0)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("curve", DefaultCurve())
	v.SetDefault("sys_root", DefaultSysRoot)
	v.SetDefault("headless", false)
	v.SetDefault("update.repository_url", DefaultRepositoryURL)
	v.SetDefault("update.version_manifest", DefaultVersionManifest)
	v.SetDefault("update.release_api_url", DefaultReleaseAPIURL)
	v.SetDefault("update.checksum_asset", DefaultChecksumAsset)
	v.SetDefault("update.fallback_asset", version.FallbackVariantName())
	v.SetDefault("update.commit_strategy", CommitSwap)
	v.SetDefault("update.timeout", DefaultTimeout)
	v.SetDefault("update.retries", 0)
	v.SetDefault("update.retry_backoff", DefaultRetryBackoff)
	v.SetDefault("update.github_token", "")
}
