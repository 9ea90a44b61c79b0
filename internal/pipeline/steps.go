package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/harmirror/internal/config"
	"github.com/nao1215/harmirror/internal/extract"
	"github.com/nao1215/harmirror/internal/har"
	"github.com/nao1215/harmirror/internal/model"
	"github.com/nao1215/harmirror/internal/patch"
)

// ExtractStep reads the HAR archive and writes every extractable response
// body into the staging directory, recording per-entry outcomes and the
// observed host set on the report.
type ExtractStep struct {
	// stagingDir is the extraction output directory.
	stagingDir string

	// imageExts are the path suffixes skipped before any write.
	imageExts []string

	// logger for structured logging.
	logger *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractImageExtensions overrides the image suffix list.
func WithExtractImageExtensions(exts []string) ExtractStepOption {
	return func(s *ExtractStep) {
		if len(exts) > 0 {
			s.imageExts = exts
		}
	}
}

// WithExtractLogger sets a custom logger for the extract step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.logger = logger
	}
}

// NewExtractStep creates the extraction step writing into stagingDir.
func NewExtractStep(stagingDir string, opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		stagingDir: stagingDir,
		imageExts:  config.DefaultImageExtensions,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extraction step.
// A HAR file that cannot be read or parsed is a fatal pipeline error;
// per-entry failures are recorded on the report and do not stop the run.
func (s *ExtractStep) Do(ctx context.Context, report *model.MirrorReport) error {
	archive, err := har.Load(report.Archive)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.stagingDir, 0750); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	report.StagingDir = s.stagingDir

	extractor := extract.New(s.stagingDir,
		extract.WithLogger(s.logger),
		extract.WithImageExtensions(s.imageExts),
	)

	result, err := extractor.Extract(ctx, archive)
	if err != nil {
		return err
	}

	report.SetHosts(result.Hosts)
	report.HostsFile = result.HostsFile
	for _, f := range result.Files {
		report.AddFile(f)
	}

	s.logger.Info("extraction complete",
		"archive", report.Archive,
		"written", result.Written(),
		"hosts", len(result.Hosts),
	)

	return nil
}

// CopyStep recursively copies every extracted file from the staging
// directory into the site root, preserving directory structure and
// silently overwriting existing files. When the staging directory and the
// site root resolve to the same location, nothing is copied.
type CopyStep struct {
	// stagingDir is the copy source.
	stagingDir string

	// siteRoot is the copy destination.
	siteRoot string

	// logger for structured logging.
	logger *slog.Logger
}

// CopyStepOption configures a CopyStep.
type CopyStepOption func(*CopyStep)

// WithCopyLogger sets a custom logger for the copy step.
func WithCopyLogger(logger *slog.Logger) CopyStepOption {
	return func(s *CopyStep) {
		s.logger = logger
	}
}

// NewCopyStep creates the staging-to-root copy step.
func NewCopyStep(stagingDir, siteRoot string, opts ...CopyStepOption) *CopyStep {
	s := &CopyStep{
		stagingDir: stagingDir,
		siteRoot:   siteRoot,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CopyStep) Name() string {
	return "copy"
}

// Do executes the copy step.
func (s *CopyStep) Do(ctx context.Context, report *model.MirrorReport) error {
	absStaging, err := filepath.Abs(s.stagingDir)
	if err != nil {
		return fmt.Errorf("resolve staging directory: %w", err)
	}
	absRoot, err := filepath.Abs(s.siteRoot)
	if err != nil {
		return fmt.Errorf("resolve site root: %w", err)
	}

	if absStaging == absRoot {
		s.logger.Info("staging equals site root, nothing to copy")
		return nil
	}

	copied := 0
	err = filepath.WalkDir(s.stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.stagingDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(s.siteRoot, rel)
		if err := copyFile(path, dst); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return err
	}

	report.CopiedFiles = copied
	s.logger.Info("copy complete", "files", copied, "dst", s.siteRoot)
	return nil
}

// copyFile copies src to dst as bytes, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // Path comes from walking our own staging dir
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Dst is under the user's site root
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close() //nolint:errcheck // Best effort cleanup on copy failure
		return err
	}
	return out.Close()
}

// PatchStep rewrites the entry HTML document using the host set collected
// by the extraction step, plus any extra hosts from configuration.
type PatchStep struct {
	// candidates is the ordered entry-document search list.
	candidates []string

	// extraHosts are rewritable hosts beyond the archive's own host set.
	extraHosts []string

	// imageExts are the URL suffixes the patcher leaves untouched.
	imageExts []string

	// backup controls the pre-patch snapshot.
	backup bool

	// rewriter selects the markup-matching implementation.
	rewriter patch.Rewriter

	// logger for structured logging.
	logger *slog.Logger
}

// PatchStepOption configures a PatchStep.
type PatchStepOption func(*PatchStep)

// WithPatchExtraHosts adds hosts treated as rewritable even when the
// archive never recorded a request to them.
func WithPatchExtraHosts(hosts []string) PatchStepOption {
	return func(s *PatchStep) {
		s.extraHosts = hosts
	}
}

// WithPatchImageExtensions overrides the image suffix list.
func WithPatchImageExtensions(exts []string) PatchStepOption {
	return func(s *PatchStep) {
		if len(exts) > 0 {
			s.imageExts = exts
		}
	}
}

// WithPatchBackup controls the pre-patch snapshot.
func WithPatchBackup(backup bool) PatchStepOption {
	return func(s *PatchStep) {
		s.backup = backup
	}
}

// WithPatchRewriter selects the rewriter implementation.
func WithPatchRewriter(r patch.Rewriter) PatchStepOption {
	return func(s *PatchStep) {
		s.rewriter = r
	}
}

// WithPatchLogger sets a custom logger for the patch step.
func WithPatchLogger(logger *slog.Logger) PatchStepOption {
	return func(s *PatchStep) {
		s.logger = logger
	}
}

// NewPatchStep creates the patch step with the given entry-document
// candidate list.
func NewPatchStep(candidates []string, opts ...PatchStepOption) *PatchStep {
	s := &PatchStep{
		candidates: candidates,
		imageExts:  config.DefaultImageExtensions,
		backup:     true,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rewriter == nil {
		s.rewriter = patch.NewRegexRewriter()
	}

	return s
}

// Name returns the step name.
func (s *PatchStep) Name() string {
	return "patch"
}

// Do executes the patch step.
func (s *PatchStep) Do(_ context.Context, report *model.MirrorReport) error {
	hosts := append(append([]string(nil), report.Hosts...), s.extraHosts...)
	policy := patch.NewPolicy(hosts, s.imageExts)

	patcher := patch.New(
		patch.WithRewriter(s.rewriter),
		patch.WithBackup(s.backup),
		patch.WithLogger(s.logger),
	)

	entry := patch.FindEntryFile(s.candidates)
	result, err := patcher.Patch(entry, policy)
	if err != nil {
		return err
	}

	report.EntryFile = result.EntryFile
	report.BackupFile = result.BackupFile
	report.Patched = result.Patched
	return nil
}

// DefaultPipelineOption configures DefaultPipeline.
type DefaultPipelineOption func(*defaultPipelineConfig)

// defaultPipelineConfig collects the per-archive settings DefaultPipeline
// threads into its steps.
type defaultPipelineConfig struct {
	imageExts       []string
	entryCandidates []string
	extraHosts      []string
	backup          bool
	rewriter        patch.Rewriter
	logger          *slog.Logger
}

// WithPipelineImageExtensions overrides the image suffix list for both the
// extract and patch steps.
func WithPipelineImageExtensions(exts []string) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		if len(exts) > 0 {
			c.imageExts = exts
		}
	}
}

// WithPipelineEntryCandidates overrides the entry-document search list.
func WithPipelineEntryCandidates(candidates []string) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		if len(candidates) > 0 {
			c.entryCandidates = candidates
		}
	}
}

// WithPipelineExtraHosts adds rewritable hosts beyond the archive's own set.
func WithPipelineExtraHosts(hosts []string) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.extraHosts = hosts
	}
}

// WithPipelineBackup controls the pre-patch snapshot.
func WithPipelineBackup(backup bool) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.backup = backup
	}
}

// WithPipelineRewriter selects the patch rewriter implementation.
func WithPipelineRewriter(r patch.Rewriter) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.rewriter = r
	}
}

// WithPipelineStepLogger sets the logger threaded into every step.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *defaultPipelineConfig) {
		c.logger = logger
	}
}

// DefaultPipeline creates the standard mirror pipeline for one archive:
// extract into <siteRoot>/out_extracted, copy into the site root, patch the
// entry document. The entry candidate list defaults to <siteRoot>/index.html
// followed by ./index.html.
func DefaultPipeline(siteRoot string, pipelineOpts []Option, opts ...DefaultPipelineOption) *Pipeline {
	cfg := &defaultPipelineConfig{
		imageExts: config.DefaultImageExtensions,
		backup:    true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.entryCandidates) == 0 {
		cfg.entryCandidates = []string{
			filepath.Join(siteRoot, config.EntryFileName),
			config.EntryFileName,
		}
	}

	stagingDir := filepath.Join(siteRoot, config.StagingDirName)

	p := New(pipelineOpts...)
	p.AddSteps(
		NewExtractStep(stagingDir,
			WithExtractImageExtensions(cfg.imageExts),
			WithExtractLogger(cfg.logger),
		),
		NewCopyStep(stagingDir, siteRoot,
			WithCopyLogger(cfg.logger),
		),
		NewPatchStep(cfg.entryCandidates,
			WithPatchImageExtensions(cfg.imageExts),
			WithPatchExtraHosts(cfg.extraHosts),
			WithPatchBackup(cfg.backup),
			WithPatchRewriter(cfg.rewriter),
			WithPatchLogger(cfg.logger),
		),
	)

	return p
}
