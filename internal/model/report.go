package model

import (
	"sort"
	"time"
)

// MirrorReport is the main result structure for one archive run.
// It contains every per-entry outcome, the collected host set, and the
// patch-phase artifacts, and is what report writers and the run database
// consume.
//
// Design decision: We use a single flat struct rather than separate
// extract/patch result types to simplify serialization and database storage.
// The two phases always run as a unit, so splitting the result would only
// add plumbing.
type MirrorReport struct {
	// Archive is the path of the HAR file that was mirrored.
	Archive string `json:"archive"`

	// SiteRoot is the directory the mirror was reconstructed into.
	SiteRoot string `json:"site_root"`

	// StagingDir is the extraction staging directory under SiteRoot.
	StagingDir string `json:"staging_dir"`

	// DateMirrored is the timestamp when the run was performed.
	DateMirrored time.Time `json:"date_mirrored"`

	// Hosts is the sorted set of distinct URL authorities observed across
	// all entries with a non-empty URL. Immutable after extraction.
	Hosts []string `json:"hosts,omitempty"`

	// HostsFile is the path of the extracted_hosts.txt artifact.
	HostsFile string `json:"hosts_file,omitempty"`

	// Files holds one result per archive entry with a resolvable URL,
	// in archive order.
	Files []FileResult `json:"files,omitempty"`

	// CopiedFiles is the number of files copied from the staging directory
	// into the site root. Zero when staging and root coincide.
	CopiedFiles int `json:"copied_files"`

	// EntryFile is the entry HTML document the patcher operated on.
	// Empty when no candidate existed.
	EntryFile string `json:"entry_file,omitempty"`

	// BackupFile is the timestamped pre-patch snapshot of the entry document.
	BackupFile string `json:"backup_file,omitempty"`

	// Patched indicates whether the entry document was rewritten.
	Patched bool `json:"patched"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the first fatal pipeline error, if any.
	// Per-entry extraction failures are NOT fatal; they live in Files.
	Error error `json:"-"` // Excluded from JSON (serialized as ErrorMessage)

	// ErrorMessage is the serializable form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// FileResult records the outcome of a single archive entry.
type FileResult struct {
	// URL is the entry's request URL.
	URL string `json:"url"`

	// LocalPath is the derived path relative to the output root.
	// Empty for entries that were skipped before path derivation.
	LocalPath string `json:"local_path,omitempty"`

	// Status is the extraction outcome.
	Status FileStatus `json:"status"`

	// StatusText is the human-readable status.
	StatusText string `json:"status_text"`

	// HTTPStatus is the recorded response status code.
	// Only meaningful for StatusSkippedNoBody, where it is reported
	// alongside the URL.
	HTTPStatus int `json:"http_status,omitempty"`

	// Size is the number of body bytes written for StatusWritten entries.
	Size int64 `json:"size,omitempty"`

	// Hash is the SHA3-256 digest of the written body, hex-encoded.
	// Empty unless Status is StatusWritten.
	Hash string `json:"hash,omitempty"`

	// Reason describes why the entry failed, for StatusFailed.
	Reason string `json:"reason,omitempty"`
}

// NewMirrorReport creates a report for the given archive and site root
// with the mirror timestamp set to now.
func NewMirrorReport(archive, siteRoot string) *MirrorReport {
	return &MirrorReport{
		Archive:      archive,
		SiteRoot:     siteRoot,
		DateMirrored: time.Now(),
	}
}

// AddFile appends a per-entry result, filling in the status text.
func (r *MirrorReport) AddFile(result FileResult) {
	result.StatusText = result.Status.String()
	r.Files = append(r.Files, result)
}

// SetHosts stores the host set sorted; the stored slice is a copy.
func (r *MirrorReport) SetHosts(hosts []string) {
	r.Hosts = append([]string(nil), hosts...)
	sort.Strings(r.Hosts)
}

// CountByStatus returns the number of entries with the given status.
func (r *MirrorReport) CountByStatus(status FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// WrittenCount returns the number of files written to disk.
func (r *MirrorReport) WrittenCount() int { return r.CountByStatus(StatusWritten) }

// FailedCount returns the number of entries whose write or decode failed.
func (r *MirrorReport) FailedCount() int { return r.CountByStatus(StatusFailed) }

// Failures returns the failed entries in archive order.
func (r *MirrorReport) Failures() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == StatusFailed {
			out = append(out, f)
		}
	}
	return out
}

// RecordError stores a fatal pipeline error in both the typed and
// serializable fields.
func (r *MirrorReport) RecordError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
