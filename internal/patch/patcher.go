package patch

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/harmirror/internal/config"
)

// Patcher rewrites the entry HTML document of a reconstructed mirror so
// that script and stylesheet references point at the extracted local
// copies. Image references are deliberately left on their original hosts.
type Patcher struct {
	// rewriter locates and rewrites references in the document.
	rewriter Rewriter

	// backup controls the timestamped pre-patch snapshot.
	backup bool

	// logger reports patch progress.
	logger *slog.Logger

	// now supplies the backup timestamp. Injectable for tests.
	now func() time.Time
}

// Result describes what one patch run did.
type Result struct {
	// EntryFile is the document that was patched. Empty when no candidate
	// file existed.
	EntryFile string

	// BackupFile is the pre-patch snapshot path, when a backup was taken.
	BackupFile string

	// Patched is true when the document was rewritten and written back.
	Patched bool

	// Changed is true when the rewritten text differs from the original.
	// A patched-but-unchanged run means the document was already local.
	Changed bool
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithRewriter selects the rewriter implementation.
// Defaults to the pattern-based rewriter.
func WithRewriter(r Rewriter) Option {
	return func(p *Patcher) {
		p.rewriter = r
	}
}

// WithBackup controls whether a pre-patch snapshot is written.
// Defaults to true; the snapshot is the only rollback path.
func WithBackup(backup bool) Option {
	return func(p *Patcher) {
		p.backup = backup
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Patcher) {
		p.logger = logger
	}
}

// WithNow sets the clock used for backup timestamps.
func WithNow(now func() time.Time) Option {
	return func(p *Patcher) {
		p.now = now
	}
}

// New creates a Patcher.
func New(opts ...Option) *Patcher {
	p := &Patcher{
		backup: true,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.rewriter == nil {
		p.rewriter = NewRegexRewriter()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// FindEntryFile returns the first existing path from the ordered candidate
// list, or empty string when none exists.
//
// Design decision: The candidate list is explicit and ordered rather than a
// hard-coded root-then-working-directory fallback, so the search path is
// visible in configuration and testable without changing the process
// working directory.
func FindEntryFile(candidates []string) string {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Patch rewrites the document at entryPath using the given host set.
//
// A missing entry file is not an error: the run is best effort and simply
// reports that nothing was patched. Read and write failures past the
// existence check are returned and abort the run; there is no recovery
// path for a half-written entry document beyond the backup file.
func (p *Patcher) Patch(entryPath string, policy *Policy) (*Result, error) {
	result := &Result{}

	if entryPath == "" {
		p.logger.Warn("no entry document found, skipping patch")
		return result, nil
	}
	if _, err := os.Stat(entryPath); os.IsNotExist(err) {
		p.logger.Warn("entry document does not exist, skipping patch", "path", entryPath)
		return result, nil
	}
	result.EntryFile = entryPath

	original, err := os.ReadFile(entryPath) //nolint:gosec // Entry path comes from the candidate list
	if err != nil {
		return nil, fmt.Errorf("read entry document: %w", err)
	}

	if p.backup {
		backupPath := fmt.Sprintf("%s.bak-%s", entryPath, p.now().Format(config.BackupTimeFormat))
		if err := os.WriteFile(backupPath, original, 0600); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
		result.BackupFile = backupPath
		p.logger.Debug("backed up entry document", "backup", backupPath)
	}

	patched, err := p.rewriter.Rewrite(string(original), policy)
	if err != nil {
		return nil, fmt.Errorf("rewrite entry document: %w", err)
	}

	if err := os.WriteFile(entryPath, []byte(patched), 0600); err != nil {
		return nil, fmt.Errorf("write entry document: %w", err)
	}

	result.Patched = true
	result.Changed = patched != string(original)
	p.logger.Info("patched entry document",
		"path", entryPath,
		"rewriter", p.rewriter.Name(),
		"changed", result.Changed,
	)

	return result, nil
}
