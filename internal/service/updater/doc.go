// Package updater replaces the running binary with the latest published release.
//
// The pipeline resolves the release asset matching the build variant, downloads
// it next to the binary, verifies its SHA-256 digest against the published
// checksum manifest and commits it in place. A separate advisory check compares
// the compiled version with the version manifest in the source repository.
package updater
