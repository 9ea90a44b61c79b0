package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoArchive is returned when no HAR file is specified.
	ErrNoArchive = errors.New("no archive specified: provide a HAR file as an argument")

	// ErrEmptySiteRoot is returned when the site root is empty.
	// Use "." to mirror into the current directory.
	ErrEmptySiteRoot = errors.New("empty site root: use \".\" for the current directory")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no archives get processed at all.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrMultipleSiteRoots is returned when more than one non-archive
	// positional argument is given. Only one site root makes sense.
	ErrMultipleSiteRoots = errors.New("multiple site roots: at most one non-.har argument is allowed")
)
