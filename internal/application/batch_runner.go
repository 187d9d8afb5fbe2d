package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// ReportGenerator computes the report of one class snapshot.
// *ReportService implements it.
type ReportGenerator interface {
	Generate(ctx context.Context, snap *domain.Snapshot) (domain.Report, error)
}

// BatchResult is the outcome for one class of a batch.
type BatchResult struct {
	ClassID domain.ClassID
	Report  domain.Report
	Err     error
}

// BatchRunner computes the reports of many classes concurrently.
type BatchRunner struct {
	generator   ReportGenerator
	concurrency int
	logger      *slog.Logger
}

// NewBatchRunner creates a BatchRunner running at most concurrency classes
// at once. A concurrency of 0 or less uses runtime.NumCPU(). A nil logger
// uses slog.Default.
func NewBatchRunner(generator ReportGenerator, concurrency int, logger *slog.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		generator:   generator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run computes one report per snapshot. Results are returned in the order
// of snaps. A failing class does not stop the others: its error is stored
// in its BatchResult and joined into the returned error.
// Run stops scheduling new classes once ctx is cancelled.
func (b *BatchRunner) Run(ctx context.Context, snaps []*domain.Snapshot) ([]BatchResult, error) {
	results := make([]BatchResult, len(snaps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, snap := range snaps {
		if snap == nil {
			results[i] = BatchResult{Err: fmt.Errorf("snapshot %d is nil", i)}
			continue
		}
		results[i].ClassID = snap.Class().ID

		if gctx.Err() != nil {
			results[i].Err = gctx.Err()
			continue
		}

		g.Go(func() error {
			report, err := b.generator.Generate(gctx, snap)
			if err != nil {
				b.logger.Warn("class report failed", "class_id", snap.Class().ID, "error", err)
				results[i].Err = err
				// Class failures are collected, not propagated, so the
				// group context stays alive for the other classes.
				return nil
			}
			results[i].Report = report
			return nil
		})
	}

	// The goroutines never return an error.
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("class %s: %w", r.ClassID, r.Err))
		}
	}

	b.logger.Info("batch finished",
		"classes", len(snaps),
		"failed", len(errs),
	)

	return results, errors.Join(errs...)
}
