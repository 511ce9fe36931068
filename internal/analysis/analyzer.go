// Package analysis scores enriched items in concurrent batches.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/workerpool"
)

// Scorer classifies and scores one batch of items.
type Scorer interface {
	Score(ctx context.Context, batch []news.EnrichedItem) ([]news.ScoredItem, error)
}

// Submitter runs tasks on a bounded pool.
type Submitter interface {
	Submit(task func()) error
}

// BatchError reports a batch that contributed no results.
type BatchError struct {
	Index int
	Size  int
	Cause error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d items): %v", e.Index, e.Size, e.Cause)
}

func (e *BatchError) Unwrap() error { return e.Cause }

// Saturated reports whether the batch was rejected by a full pool.
func (e *BatchError) Saturated() bool {
	return errors.Is(e.Cause, workerpool.ErrPoolSaturated)
}

// Batches splits items into contiguous slices of at most size items.
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

type Analyzer struct {
	scorer    Scorer
	pool      Submitter
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewAnalyzer(scorer Scorer, pool Submitter, batchSize int, logger *slog.Logger, m *metrics.Metrics) *Analyzer {
	if batchSize < 1 {
		batchSize = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Global
	}
	return &Analyzer{scorer: scorer, pool: pool, batchSize: batchSize, logger: logger, metrics: m}
}

// accumulator collects batch results as they complete.
type accumulator struct {
	mu     sync.Mutex
	items  []news.ScoredItem
	failed []*BatchError
}

func (a *accumulator) add(items []news.ScoredItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, items...)
}

func (a *accumulator) fail(err *BatchError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, err)
}

func (a *accumulator) snapshot() ([]news.ScoredItem, []*BatchError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]news.ScoredItem(nil), a.items...), append([]*BatchError(nil), a.failed...)
}

// Analyze scores items batch by batch and returns whatever succeeded.
// Result order follows batch completion. If ctx ends before every batch is
// done, the results completed so far are returned.
func (a *Analyzer) Analyze(ctx context.Context, items []news.EnrichedItem) []news.ScoredItem {
	batches := Batches(items, a.batchSize)
	if len(batches) == 0 {
		return nil
	}

	acc := &accumulator{}
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			scored, err := a.scorer.Score(ctx, batch)
			if err != nil {
				a.reject(acc, &BatchError{Index: i, Size: len(batch), Cause: err})
				return
			}
			acc.add(scored)
			a.metrics.IncrementBatchesSucceeded()
			a.metrics.AddItemsScored(len(scored))
		}
		if err := a.pool.Submit(task); err != nil {
			wg.Done()
			a.reject(acc, &BatchError{Index: i, Size: len(batch), Cause: err})
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("analysis interrupted, returning partial results", "error", ctx.Err())
	}

	scored, failed := acc.snapshot()
	a.logger.Info("analysis finished",
		"batches", len(batches),
		"failed", len(failed),
		"scored", len(scored))
	return scored
}

func (a *Analyzer) reject(acc *accumulator, err *BatchError) {
	acc.fail(err)
	if err.Saturated() {
		a.metrics.IncrementBatchesRejected()
		a.logger.Error("analysis pool saturated, batch dropped",
			"batch", err.Index, "items", err.Size)
		return
	}
	a.metrics.IncrementBatchesFailed()
	a.logger.Warn("batch scoring failed", "batch", err.Index, "items", err.Size, "error", err.Cause)
}
