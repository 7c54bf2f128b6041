// Package packager prepares the checksum manifest published with every release.
//
// It computes the SHA-256 digest of each release asset and writes them as a JSON
// object keyed by asset name. Values are JSON strings that themselves carry quote
// characters, the encoding the updater expects when it downloads the manifest.
package packager
