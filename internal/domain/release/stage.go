package release

// Stage is a step of the commit state machine:
// downloaded -> verified -> committed, or verified(failed) -> discarded.
type Stage string

const (
	// StageDownloaded means the asset is on disk at the temporary path.
	StageDownloaded Stage = "downloaded"
	// StageVerified means the temporary file matched its published digest.
	StageVerified Stage = "verified"
	// StageCommitted means the verified file replaced the running binary.
	StageCommitted Stage = "committed"
	// StageDiscarded means the temporary file was removed after a failed check.
	StageDiscarded Stage = "discarded"
)

// CanCommit reports whether a file in this stage may replace the binary.
func (s Stage) CanCommit() bool {
	return s == StageVerified
}
