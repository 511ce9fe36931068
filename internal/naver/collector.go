package naver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
)

// KeywordFetcher fetches candidates for one keyword.
type KeywordFetcher interface {
	Fetch(ctx context.Context, keyword string) ([]news.RawItem, error)
}

// Submitter runs tasks on a bounded pool.
type Submitter interface {
	Submit(task func()) error
}

// Collector fans keyword searches out over a pool and merges the results.
type Collector struct {
	fetcher KeywordFetcher
	pool    Submitter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCollector(fetcher KeywordFetcher, pool Submitter, logger *slog.Logger, m *metrics.Metrics) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Global
	}
	return &Collector{fetcher: fetcher, pool: pool, logger: logger, metrics: m}
}

type keywordResults struct {
	mu    sync.Mutex
	items map[int][]news.RawItem
}

func (r *keywordResults) put(i int, items []news.RawItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[i] = items
}

func (r *keywordResults) merged(n int) []news.RawItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []news.RawItem
	for i := 0; i < n; i++ {
		out = append(out, r.items[i]...)
	}
	return out
}

// Collect fetches every distinct keyword concurrently. Failed keywords are
// logged and left out. If ctx ends first, the items gathered so far are returned.
func (c *Collector) Collect(ctx context.Context, keywords []string) []news.RawItem {
	keywords = distinctKeywords(keywords)
	c.metrics.AddKeywordsRequested(len(keywords))
	if len(keywords) == 0 {
		return nil
	}

	results := &keywordResults{items: make(map[int][]news.RawItem, len(keywords))}
	var wg sync.WaitGroup

	for i, kw := range keywords {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			items, err := c.fetcher.Fetch(ctx, kw)
			if err != nil {
				c.metrics.IncrementKeywordsFailed()
				c.logger.Warn("keyword fetch failed", "keyword", kw, "error", err)
				return
			}
			c.metrics.AddItemsFetched(len(items))
			results.put(i, items)
		}
		if err := c.pool.Submit(task); err != nil {
			wg.Done()
			c.metrics.IncrementKeywordsFailed()
			c.logger.Error("keyword task not scheduled", "keyword", kw, "error", err)
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
		c.logger.Warn("collection interrupted, returning partial results", "error", ctx.Err())
	}

	merged := results.merged(len(keywords))
	c.logger.Info("collection finished", "keywords", len(keywords), "items", len(merged))
	return merged
}

func distinctKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
