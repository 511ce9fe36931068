// Package scraper enriches search results with details scraped from the article page.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newscurator/internal/cache"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
)

// Config controls crawl pacing and the page request.
type Config struct {
	Delay     time.Duration
	UserAgent string
	Timeout   time.Duration
	Selectors Selectors
	CacheTTL  time.Duration
}

// Crawler visits candidates one at a time, pausing Delay after each.
type Crawler struct {
	cfg     Config
	client  *http.Client
	cache   cache.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customises a Crawler.
type Option func(*Crawler)

func WithHTTPClient(c *http.Client) Option { return func(cr *Crawler) { cr.client = c } }

// WithCache serves complete details from store and skips the page fetch and pause on a hit.
func WithCache(store cache.Store) Option { return func(cr *Crawler) { cr.cache = store } }

func WithMetrics(m *metrics.Metrics) Option { return func(cr *Crawler) { cr.metrics = m } }

func NewCrawler(cfg Config, logger *slog.Logger, opts ...Option) *Crawler {
	if cfg.Selectors == (Selectors{}) {
		cfg.Selectors = DefaultSelectors()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Crawler{
		cfg:     cfg,
		client:  newHTTPClient(cfg.Timeout),
		logger:  logger,
		metrics: metrics.Global,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enrich returns the candidates whose four detail fields could all be scraped,
// in input order. Failures are logged and skipped. The pause follows every
// fetched candidate; a cache hit makes no request and is not followed by one.
// Cancellation during the pause ends the crawl with the items enriched so far.
func (c *Crawler) Enrich(ctx context.Context, items []news.RawItem) []news.EnrichedItem {
	out := make([]news.EnrichedItem, 0, len(items))

	for i, item := range items {
		if ctx.Err() != nil {
			c.logger.Warn("crawl interrupted", "done", i, "total", len(items))
			break
		}

		if d, ok := c.cached(ctx, item.Link); ok {
			c.metrics.IncrementCacheHits()
			c.metrics.IncrementItemsEnriched()
			out = append(out, news.EnrichedItem{RawItem: item, Detail: d})
			continue
		}

		c.logger.Debug("crawling article", "n", i+1, "total", len(items), "link", item.Link)
		d, err := FetchDetail(ctx, c.client, c.cfg.UserAgent, item.Link, c.cfg.Selectors)
		if err != nil {
			c.metrics.IncrementCrawlSkips()
			c.logger.Info("article skipped", "error", err)
		} else {
			c.metrics.IncrementItemsEnriched()
			out = append(out, news.EnrichedItem{RawItem: item, Detail: d})
			c.store(ctx, item.Link, d)
		}

		if !c.pause(ctx) {
			c.logger.Warn("crawl interrupted during delay", "done", i+1, "total", len(items))
			break
		}
	}

	c.logger.Info("crawl finished", "candidates", len(items), "enriched", len(out))
	return out
}

func (c *Crawler) cached(ctx context.Context, link string) (news.Detail, bool) {
	if c.cache == nil {
		return news.Detail{}, false
	}
	d, ok := c.cache.Get(ctx, link)
	if !ok || !d.Complete() {
		return news.Detail{}, false
	}
	return d, true
}

func (c *Crawler) store(ctx context.Context, link string, d news.Detail) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, link, d, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("failed to cache detail", "link", link, "error", err)
	}
}

// pause waits Delay and reports false if ctx ended first.
func (c *Crawler) pause(ctx context.Context) bool {
	if c.cfg.Delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
