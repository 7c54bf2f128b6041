// Package version exposes build metadata for the project.
//
// Variables Version, Commit, BuildTime, FanCount and StaticBuild are injected at
// build time via Go ldflags and default to sensible values for local builds.
// Current turns them into a Build value, whose VariantName selects the matching
// release asset during self-update.
package version
