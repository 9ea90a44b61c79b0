package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behavior of the reference extract-and-patch workflow
// where applicable.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "harmirror"

	// DefaultBatchSize of 1 keeps multi-archive runs strictly sequential,
	// matching the tool's single-threaded execution model. Users who mirror
	// many independent captures can raise it via the --batch flag; the
	// per-archive pipeline itself never runs concurrently.
	DefaultBatchSize = 1

	// StagingDirName is the extraction staging subdirectory created under
	// the site root. Files are extracted here first and then copied into
	// the root, so a failed extraction never leaves a half-patched root.
	StagingDirName = "out_extracted"

	// HostsFileName is the artifact listing every distinct host observed
	// in the archive, written into the staging directory.
	HostsFileName = "extracted_hosts.txt"

	// EntryFileName is the default entry HTML document name.
	EntryFileName = "index.html"

	// BackupTimeFormat is the second-granularity timestamp appended to
	// entry-document backup files.
	BackupTimeFormat = "20060102-150405"
)

// DefaultImageExtensions are the path suffixes treated as images.
// Entries with these suffixes are never written to disk and their
// references in the entry document are never rewritten.
var DefaultImageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
}

// Config holds all configuration options for harmirror.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ExtractConfig, PatchConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Archives is the list of HAR files to mirror.
	// Must contain at least one path.
	Archives []string

	// SiteRoot is the directory the mirror is reconstructed into.
	// Defaults to the current directory. When multiple archives are given,
	// each archive mirrors into SiteRoot/<archive-stem>/.
	SiteRoot string

	// BatchSize is the number of archives mirrored concurrently when
	// multiple archives are given. 1 means fully sequential processing.
	BatchSize int

	// ImageExtensions are the path suffixes skipped by the extractor and
	// left untouched by the patcher. Compared case-insensitively.
	ImageExtensions []string

	// EntryCandidates is the ordered list of entry-document locations the
	// patcher tries, relative paths resolved against the working directory.
	// When empty, the default is SiteRoot/index.html then ./index.html.
	//
	// Design decision: The fallback to ./index.html is an explicit entry in
	// this list rather than an implicit working-directory dependency buried
	// in the patch phase, so it can be overridden and tested.
	EntryCandidates []string

	// Backup controls whether the patcher snapshots the entry document to a
	// timestamped sibling file before rewriting it.
	Backup bool

	// UseDOMRewriter selects the structural (DOM-based) attribute rewriter
	// instead of the default pattern-based one. The pattern rewriter
	// reproduces the reference behavior byte for byte; the DOM rewriter
	// additionally copes with single-quoted and multiline tags.
	UseDOMRewriter bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .harmirror in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// ArchiveConfigs holds per-archive configurations loaded from the
	// config file.
	ArchiveConfigs *File

	// JSONReport enables JSON report output instead of human-readable text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite run database.
	// Defaults to the XDG data directory (~/.local/share/harmirror on Linux).
	DBDir string

	// SaveToDB indicates whether to record run results in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
func NewConfig() *Config {
	return &Config{
		SiteRoot:        ".",
		BatchSize:       DefaultBatchSize,
		ImageExtensions: append([]string(nil), DefaultImageExtensions...),
		Backup:          true,
	}
}

// XDGDataDir returns the XDG data directory for harmirror.
// On Linux: ~/.local/share/harmirror
// On macOS: ~/Library/Application Support/harmirror
// On Windows: %LOCALAPPDATA%\harmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for harmirror.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate once after CLI parsing rather than at each
// point of use to fail fast with a clear message before touching the disk.
// The first error found is returned because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Archives) == 0 {
		return ErrNoArchive
	}

	if c.SiteRoot == "" {
		return ErrEmptySiteRoot
	}

	// BatchSize must be positive; zero would mean no mirroring at all
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
