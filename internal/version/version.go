package version

import (
	"fmt"
	"strconv"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
	// FanCount is the number of fans this build drives, injected via ldflags.
	FanCount = "1"
	// StaticBuild is "true" for statically linked release builds.
	StaticBuild = "false"
)

const (
	// BinaryBaseName is the name shared by all release variants.
	BinaryBaseName = "gpu-fan-control"

	// staticSuffix marks statically linked variants.
	staticSuffix = "-static"
)

// Build is the compile-time identity of the running binary.
// It is constructed once at startup and passed to whoever needs it.
type Build struct {
	// Version is the semantic version compiled into the binary.
	Version string
	// Commit is the git SHA the binary was built from.
	Commit string
	// BuildTime is the UTC build timestamp.
	BuildTime string
	// FanCount is the number of fans this build was configured for.
	FanCount int
	// Static reports whether the binary is statically linked.
	Static bool
}

// Current returns the Build described by the ldflags-injected variables.
// Malformed values fall back to a single-fan dynamic build.
func Current() Build {
	fans, err := strconv.Atoi(FanCount)
	if err != nil || fans < 1 {
		fans = 1
	}

	static, err := strconv.ParseBool(StaticBuild)
	if err != nil {
		static = false
	}

	return Build{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		FanCount:  fans,
		Static:    static,
	}
}

// VariantName returns the release asset name matching this build,
// e.g. "gpu-fan-control-3-fans-static".
func (b Build) VariantName() string {
	name := BinaryBaseName
	if b.FanCount > 1 {
		name = fmt.Sprintf("%s-%d-fans", name, b.FanCount)
	}

	if b.Static {
		name += staticSuffix
	}

	return name
}

// FallbackVariantName returns the generic asset used when no exact variant is published.
func FallbackVariantName() string {
	return BinaryBaseName + staticSuffix
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, variant: %s",
		Version, Commit, BuildTime, Current().VariantName())
}
