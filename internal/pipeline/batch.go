package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/zapreport/internal/model"
)

// TargetScanner scans a single target. *scanner.Runner implements it.
type TargetScanner interface {
	ScanTarget(ctx context.Context, target model.Target) (*model.TargetResult, error)
}

// BatchProcessor scans multiple targets with a bounded number of
// concurrent scans. Passes of one target always run sequentially.
//
// Design decision: The default concurrency is 1. Full active scans are heavy
// on the scanned hosts and on the machine running the containers, so running
// targets side by side is an explicit choice (scan.parallel).
type BatchProcessor struct {
	// scanner runs the passes of one target.
	scanner TargetScanner

	// concurrency is the maximum number of concurrently scanned targets.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrently scanned targets.
// Default is 1 (sequential). Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(scanner TargetScanner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		scanner:     scanner,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans targets and returns their results in target order.
//
// The slot of a target that was never started (because an earlier target
// aborted the run or ctx was cancelled) is nil. The first error returned
// by a scan cancels the targets that have not started yet and is returned
// once every running scan has finished.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []model.Target) ([]*model.TargetResult, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	results := make([]*model.TargetResult, len(targets))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("scanning target",
				"target", target.URL(),
				"index", i+1,
				"total", len(targets),
			)

			result, err := bp.scanner.ScanTarget(ctx, target)

			// Store result regardless of error
			mu.Lock()
			results[i] = result
			mu.Unlock()

			if err != nil {
				bp.logger.Warn("target scan stopped", "target", target.URL(), "error", err)
				return err
			}

			bp.logger.Info("target scan completed",
				"target", target.URL(),
				"failed_passes", result.Failures(),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
