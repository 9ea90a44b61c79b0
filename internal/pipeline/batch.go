package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/harmirror/internal/model"
	"golang.org/x/sync/errgroup"
)

// Target pairs an archive with the site root it mirrors into.
type Target struct {
	// Archive is the HAR file path.
	Archive string

	// SiteRoot is the directory the mirror is reconstructed into.
	SiteRoot string
}

// BatchProcessor handles processing of multiple independent archives.
// Concurrency exists only ACROSS archives; each archive's own pipeline
// remains strictly sequential. With the default limit of 1 the whole run
// is sequential, matching single-archive behavior exactly.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because it keeps the Pipeline focused on
// single-archive execution and gives multi-archive runs their own knobs.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target.
	// We use a factory so each archive gets a fresh pipeline instance with
	// its own staging directory and entry candidates.
	pipelineFactory func(target Target) *Pipeline

	// concurrency is the maximum number of archives mirrored at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports, index-aligned with the targets.
	// Access is synchronized via mutex.
	results []*model.MirrorReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrently mirrored
// archives. Default is 1 (sequential) if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(target Target) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch mirrors multiple archives, respecting the configured
// concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it is simpler and handles the limit correctly. A failed archive
// does not stop the others; its error is recorded in its report.
//
// Returns all reports in target order. The error return indicates
// cancellation, not per-archive failure.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []Target) ([]*model.MirrorReport, error) {
	return bp.process(ctx, targets, nil)
}

// ProcessBatchWithCallback mirrors multiple archives and calls the callback
// for each completed one. This is useful for streaming output.
//
// The callback receives the report and the index of the target in the
// original slice. It is called from the goroutine that completed the
// archive, so it must be safe for concurrent use when concurrency > 1.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []Target,
	callback func(report *model.MirrorReport, index int),
) error {
	_, err := bp.process(ctx, targets, callback)
	return err
}

// process is the shared batch loop behind both entry points.
func (bp *BatchProcessor) process(
	ctx context.Context,
	targets []Target,
	callback func(report *model.MirrorReport, index int),
) ([]*model.MirrorReport, error) {
	bp.logger.Info("starting batch processing",
		"total_archives", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.MirrorReport, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("mirroring archive",
				"archive", target.Archive,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewMirrorReport(target.Archive, target.SiteRoot)

			p := bp.pipelineFactory(target)
			err := p.Execute(ctx, report)

			// Store the report regardless of error; it carries the error
			// information when the archive failed.
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("mirror failed",
					"archive", target.Archive,
					"error", err,
				)
				// Don't return the error to the errgroup - the other
				// archives are independent and should still run.
				return nil
			}

			if callback != nil {
				callback(report, i)
			}

			bp.logger.Info("mirror completed", "archive", target.Archive)
			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_archives", len(targets),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// Results returns the reports collected so far, in target order.
func (bp *BatchProcessor) Results() []*model.MirrorReport {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return append([]*model.MirrorReport(nil), bp.results...)
}
