package updater

import "errors"

var (
	// ErrNetwork covers transport failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")
	// ErrManifestParse is returned when a remote document cannot be decoded.
	ErrManifestParse = errors.New("manifest parse error")
	// ErrAssetNotFound is returned when no asset matches the variant or the fallback.
	ErrAssetNotFound = errors.New("no compatible release asset found")
	// ErrChecksumUnavailable is returned when no digest is published for the selected asset.
	ErrChecksumUnavailable = errors.New("checksum unavailable")
	// ErrChecksumMismatch is returned when the downloaded file does not match its digest.
	ErrChecksumMismatch = errors.New("checksums do not match")
	// ErrFilesystem covers local file operations of the pipeline.
	ErrFilesystem = errors.New("filesystem error")
	// ErrInstanceRunning is returned when another copy of the binary is running.
	ErrInstanceRunning = errors.New("another instance is running")

	// errMissingContentLength is returned when a download response has no length.
	errMissingContentLength = errors.New("response has no Content-Length")
	// errBuildRequest is returned when a request cannot be constructed.
	errBuildRequest = errors.New("build request")
	// errBadHTTPStatus is returned for non-200 responses.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errUnknownStrategy is returned by NewCommitter for unknown strategy names.
	errUnknownStrategy = errors.New("unknown commit strategy")
	// errNoExecutable is returned when a binary referenced by the journal is gone.
	errNoExecutable = errors.New("no executable at final path")
)
