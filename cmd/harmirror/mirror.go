package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/harmirror/internal/config"
	"github.com/nao1215/harmirror/internal/database"
	"github.com/nao1215/harmirror/internal/log"
	"github.com/nao1215/harmirror/internal/model"
	"github.com/nao1215/harmirror/internal/patch"
	"github.com/nao1215/harmirror/internal/pipeline"
	"github.com/nao1215/harmirror/internal/report"
	"github.com/spf13/cobra"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror <har-file>... [site-root]",
		Short: "Extract a HAR capture and patch the entry document",
		Long: `Mirror reconstructs a static site from one or more HAR captures.

For each archive, response bodies are extracted into <root>/out_extracted,
copied into the site root, and the entry HTML document is rewritten so that
script and stylesheet URLs resolve locally. A timestamped backup of the
entry document is written before patching.

Arguments ending in .har are archives; a single other argument is treated
as the site root (compatible with the classic two-argument invocation).
When several archives are given, each one mirrors into <root>/<archive-stem>/.

Examples:
  # Mirror a capture into the current directory
  harmirror mirror site.har

  # Mirror into a specific site root
  harmirror mirror site.har /srv/www/mirror

  # Mirror several captures, four at a time
  harmirror mirror -b 4 a.har b.har c.har d.har

  # Structural (DOM) rewriting instead of the pattern-based default
  harmirror mirror --dom site.har

Configuration file (.harmirror) example:
  defaults:
    backup: true
  archives:
    site.har:
      extraHosts:
        - static.example.net
      entryCandidates:
        - public/index.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMirrorCmd,
	}

	// Target flags
	cmd.Flags().StringP("root", "r", "",
		"Site root directory (default: positional argument or current directory)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of archives mirrored concurrently (1 = sequential)")

	// Patch behavior flags
	cmd.Flags().Bool("dom", false,
		"Use the structural (DOM) rewriter instead of the pattern-based one")
	cmd.Flags().Bool("no-backup", false,
		"Skip the timestamped backup of the entry document before patching")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .harmirror in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with sanitization; HAR-sourced values may
	// carry live session credentials.
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runMirror(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and positional
// arguments. Arguments ending in .har (case-insensitive) are archives; at
// most one remaining argument is accepted as the site root.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var root string
	for _, arg := range args {
		if strings.HasSuffix(strings.ToLower(arg), ".har") {
			cfg.Archives = append(cfg.Archives, arg)
			continue
		}
		if root != "" {
			return nil, config.ErrMultipleSiteRoots
		}
		root = arg
	}
	if root != "" {
		cfg.SiteRoot = root
	}

	var err error

	if flagRoot, err := cmd.Flags().GetString("root"); err != nil {
		return nil, err
	} else if flagRoot != "" {
		cfg.SiteRoot = flagRoot
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.UseDOMRewriter, err = cmd.Flags().GetBool("dom")
	if err != nil {
		return nil, err
	}

	noBackup, err := cmd.Flags().GetBool("no-backup")
	if err != nil {
		return nil, err
	}
	cfg.Backup = !noBackup

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load archive-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.ArchiveConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.ArchiveConfigs = &config.File{
			Archives: make(map[string]config.ArchiveConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Always record runs using the XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// runMirror executes the mirror run over all configured archives.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Archives) == 0 {
		return errors.New("no archives provided (specify one or more HAR files as arguments)")
	}

	logger.Info("starting mirror",
		"archives", cfg.Archives,
		"siteRoot", cfg.SiteRoot,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.MirrorDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	targets := buildTargets(cfg)

	// Use batch processor for parallel mirroring if multiple archives
	if len(targets) > 1 && cfg.BatchSize > 1 {
		return runBatchMirror(ctx, cfg, targets, db, logger)
	}

	return runSequentialMirror(ctx, cfg, targets, db, logger)
}

// buildTargets pairs each archive with its site root. A single archive
// mirrors directly into the site root; multiple archives each get a
// subdirectory named after the archive stem so they don't overwrite each
// other's entry documents.
func buildTargets(cfg *config.Config) []pipeline.Target {
	targets := make([]pipeline.Target, 0, len(cfg.Archives))
	for _, archive := range cfg.Archives {
		root := cfg.SiteRoot
		if len(cfg.Archives) > 1 {
			stem := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
			root = filepath.Join(cfg.SiteRoot, stem)
		}
		targets = append(targets, pipeline.Target{Archive: archive, SiteRoot: root})
	}
	return targets
}

// runSequentialMirror mirrors targets one at a time.
func runSequentialMirror(ctx context.Context, cfg *config.Config, targets []pipeline.Target, db *database.MirrorDB, logger *slog.Logger) error {
	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := createPipelineForTarget(cfg, target, logger)
		mirrorReport := model.NewMirrorReport(target.Archive, target.SiteRoot)

		fmt.Printf("Mirroring %s...\n", target.Archive)
		startTime := time.Now()

		if err := p.Execute(ctx, mirrorReport); err != nil {
			logger.Error("mirror failed", "archive", target.Archive, "error", err)
			fmt.Fprintf(os.Stderr, "Mirror error for %s: %v\n", target.Archive, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Mirror completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, mirrorReport); err != nil {
			logger.Error("report failed", "archive", target.Archive, "error", err)
		}

		if err := saveMirrorReport(ctx, db, mirrorReport, logger); err != nil {
			logger.Error("failed to save mirror report", "archive", target.Archive, "error", err)
		}
	}

	return nil
}

// runBatchMirror mirrors multiple targets concurrently using BatchProcessor.
func runBatchMirror(ctx context.Context, cfg *config.Config, targets []pipeline.Target, db *database.MirrorDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch mirror of %d archives (concurrency: %d)...\n\n",
		len(targets), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(target pipeline.Target) *pipeline.Pipeline {
			return createPipelineForTarget(cfg, target, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, targets, func(mirrorReport *model.MirrorReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Mirror completed: %s\n", index+1, len(targets), mirrorReport.Archive)

		if err := outputReport(cfg, mirrorReport); err != nil {
			logger.Error("report failed", "archive", mirrorReport.Archive, "error", err)
		}

		if err := saveMirrorReport(ctx, db, mirrorReport, logger); err != nil {
			logger.Error("failed to save mirror report", "archive", mirrorReport.Archive, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch mirror completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// createPipelineForTarget creates a pipeline with the target's merged
// configuration.
func createPipelineForTarget(cfg *config.Config, target pipeline.Target, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	// Merge archive-specific configuration (keyed by base name)
	var ac config.ArchiveConfig
	if cfg.ArchiveConfigs != nil {
		ac = cfg.ArchiveConfigs.GetArchiveConfig(filepath.Base(target.Archive))
	}

	backup := cfg.Backup
	if ac.Backup != nil {
		backup = *ac.Backup
	}

	imageExts := cfg.ImageExtensions
	if len(ac.ImageExtensions) > 0 {
		imageExts = ac.ImageExtensions
	}

	var rewriter patch.Rewriter
	if cfg.UseDOMRewriter {
		rewriter = patch.NewDOMRewriter()
	} else {
		rewriter = patch.NewRegexRewriter()
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineImageExtensions(imageExts),
		pipeline.WithPipelineExtraHosts(ac.ExtraHosts),
		pipeline.WithPipelineBackup(backup),
		pipeline.WithPipelineRewriter(rewriter),
		pipeline.WithPipelineStepLogger(logger),
	}

	if len(ac.EntryCandidates) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineEntryCandidates(ac.EntryCandidates))
	} else if len(cfg.EntryCandidates) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineEntryCandidates(cfg.EntryCandidates))
	}

	return pipeline.DefaultPipeline(target.SiteRoot, pipelineOpts, configOpts...)
}

// outputReport outputs the mirror report in the requested format.
func outputReport(cfg *config.Config, mirrorReport *model.MirrorReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports can contain the capture's full URL list, so restrict
		// them to the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(mirrorReport)
	return err
}

// saveMirrorReport saves the run report to the database if enabled.
// If db is nil, this function is a no-op.
func saveMirrorReport(ctx context.Context, db *database.MirrorDB, mirrorReport *model.MirrorReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveMirrorReport(ctx, mirrorReport); err != nil {
		return fmt.Errorf("failed to save mirror report: %w", err)
	}

	logger.Info("mirror report saved to database", "archive", mirrorReport.Archive)
	return nil
}
