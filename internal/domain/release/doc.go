// Package release contains core domain types of the self-update pipeline.
//
// It defines VersionString (dot-separated numeric versions with zero padding),
// Release and Asset (the "latest release" descriptor), Digest and Checksums
// (the published checksum manifest) and Stage (the commit state machine).
package release
