package model

// FileStatus represents the outcome of extracting a single archive entry.
// Every entry with a resolvable URL produces exactly one FileResult carrying
// one of these statuses; there is no hidden control flow for failures.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and counting. The String() method provides
// human-readable output when needed.
type FileStatus int

const (
	// StatusWritten indicates the entry's body was decoded and written to disk.
	StatusWritten FileStatus = iota

	// StatusSkippedImage indicates the entry's decoded path ends in a
	// recognized image extension. Image bodies are never written; their
	// references in the entry document are deliberately left pointing at
	// the original remote location.
	StatusSkippedImage

	// StatusSkippedNoBody indicates the response carried no content text.
	// Typical for 204/304 responses and requests the capture tool elided.
	// This is a logged, non-fatal condition.
	StatusSkippedNoBody

	// StatusFailed indicates the write or base64 decode failed.
	// The failure reason is recorded on the FileResult; extraction of the
	// remaining entries continues.
	StatusFailed
)

// String returns a human-readable representation of the file status.
func (s FileStatus) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusSkippedImage:
		return "skipped image"
	case StatusSkippedNoBody:
		return "skipped no body"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
