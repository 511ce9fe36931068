package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newscurator/internal/analysis"
	"github.com/deusflow/newscurator/internal/cache"
	"github.com/deusflow/newscurator/internal/config"
	"github.com/deusflow/newscurator/internal/keyword"
	"github.com/deusflow/newscurator/internal/llm"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/naver"
	"github.com/deusflow/newscurator/internal/ratelimit"
	"github.com/deusflow/newscurator/internal/rss"
	"github.com/deusflow/newscurator/internal/scraper"
	"github.com/deusflow/newscurator/internal/storage"
	"github.com/deusflow/newscurator/internal/topics"
	"github.com/deusflow/newscurator/internal/workerpool"
)

const redisPrefix = "newscurator:detail:"

// Options adjust Build for one invocation.
type Options struct {
	// OutPath selects a JSON file sink, overriding the configured one.
	OutPath string
	// DryRun disables every store.
	DryRun bool
}

// closers releases resources in reverse order of acquisition.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// Build assembles a Pipeline from cfg. The returned func releases pools,
// clients and connections.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Pipeline, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cl closers
	fail := func(err error) (*Pipeline, func(), error) {
		cl.close()
		return nil, nil, err
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cl.add(func() { _ = client.Close() })

	stores, err := openStorage(ctx, cfg, opts, logger.With("component", "storage"))
	if err != nil {
		return fail(err)
	}
	cl.add(stores.close)

	generator, err := newGenerator(cfg, client, stores.keywords, logger)
	if err != nil {
		return fail(err)
	}

	collector, closeCollector := BuildCollector(cfg, logger)
	cl.add(closeCollector)

	crawlerOpts := []scraper.Option{scraper.WithMetrics(metrics.Global)}
	if store, closeCache := openCache(cfg, logger.With("component", "cache")); store != nil {
		cl.add(closeCache)
		crawlerOpts = append(crawlerOpts, scraper.WithCache(store))
	}
	crawler := scraper.NewCrawler(scraper.Config{
		Delay:     cfg.Crawl.Delay,
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.Crawl.Timeout,
		CacheTTL:  cfg.Cache.TTL,
	}, logger.With("component", "crawler"), crawlerOpts...)

	budget := newBudget(cfg, metrics.Global, logger.With("component", "budget"))
	scorer := analysis.NewLLMScorer(client, budget, analysis.ScorerConfig{
		MaxContentRunes: cfg.Analysis.MaxContentRunes,
		RetryAttempts:   cfg.Analysis.RetryAttempts,
		RetryDelay:      cfg.Analysis.RetryDelay,
	}, logger.With("component", "scorer"))

	analysisPool := workerpool.New(workerpool.Config{
		Name:      "analysis",
		Workers:   cfg.AnalysisPool.Workers,
		QueueSize: cfg.AnalysisPool.QueueSize,
		Policy:    workerpool.PolicyAbort,
	})
	cl.add(analysisPool.Close)

	p := &Pipeline{
		Keywords:    generator,
		Static:      cfg.Topics.StaticKeywords,
		Collector:   collector,
		Crawler:     crawler,
		Analyzer:    analysis.NewAnalyzer(scorer, analysisPool, cfg.Analysis.BatchSize, logger.With("component", "analyzer"), metrics.Global),
		Sink:        stores.sink,
		PerCategory: cfg.Analysis.PerCategory,
		Logger:      logger,
		Metrics:     metrics.Global,
	}
	if cfg.Storage.SkipPersisted && stores.links != nil {
		p.History = stores.links
		p.HistoryWindow = time.Duration(cfg.Storage.HistoryHours) * time.Hour
	}
	return p, cl.close, nil
}

// BuildCollector assembles the search fan-out on its own caller-runs pool.
func BuildCollector(cfg *config.Config, logger *slog.Logger) (*naver.Collector, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := naver.NewFetcher(naver.Config{
		ClientID:             cfg.Naver.ClientID,
		ClientSecret:         cfg.Naver.ClientSecret,
		BaseURL:              cfg.Naver.BaseURL,
		Display:              cfg.Naver.Display,
		Sort:                 cfg.Naver.Sort,
		CanonicalHost:        cfg.Naver.CanonicalHost,
		TitleThreshold:       cfg.Dedup.TitleThreshold,
		DescriptionThreshold: cfg.Dedup.DescriptionThreshold,
		MaxPerKeyword:        cfg.Naver.MaxPerKeyword,
		Timeout:              cfg.Naver.Timeout,
	}, ratelimit.NewLimiter(cfg.Naver.CallSpacing), keyword.NewExtractor(nil), logger.With("component", "fetcher"))

	pool := workerpool.New(workerpool.Config{
		Name:      "fetch",
		Workers:   cfg.FetchPool.Workers,
		QueueSize: cfg.FetchPool.QueueSize,
		Policy:    workerpool.PolicyCallerRuns,
	})
	return naver.NewCollector(fetcher, pool, logger.With("component", "collector"), metrics.Global), pool.Close
}

// BuildGenerator assembles only the keyword source, for listing keywords.
func BuildGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (topics.Generator, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cl closers

	var client llm.Client
	if cfg.Topics.Source == "llm" {
		c, err := newLLMClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		client = c
		cl.add(func() { _ = c.Close() })
	}

	stores, err := openStorage(ctx, cfg, opts, logger.With("component", "storage"))
	if err != nil {
		cl.close()
		return nil, nil, err
	}
	cl.add(stores.close)

	gen, err := newGenerator(cfg, client, stores.keywords, logger)
	if err != nil {
		cl.close()
		return nil, nil, err
	}
	return gen, cl.close, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llm.Config{
		Provider:    llm.Provider(cfg.LLM.Provider),
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey(),
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func newGenerator(cfg *config.Config, client llm.Client, history topics.History, logger *slog.Logger) (topics.Generator, error) {
	switch cfg.Topics.Source {
	case "static":
		return topics.Static(nil), nil
	case "feeds":
		feeds, err := rss.LoadFeeds(cfg.Topics.FeedsConfigPath)
		if err != nil {
			return nil, err
		}
		fetcher := rss.NewFetcher(cfg.Naver.Timeout, logger.With("component", "rss"))
		return topics.NewFeedGenerator(fetcher, feeds, keyword.NewExtractor(nil), cfg.Topics.FeedKeywords), nil
	}

	if client == nil {
		return nil, fmt.Errorf("keyword source %q needs an LLM client", cfg.Topics.Source)
	}
	return topics.NewLLMGenerator(client, history, topics.HistoryConfig{
		OveruseDays:    cfg.Topics.OveruseDays,
		OveruseMinUses: cfg.Topics.OveruseMinUses,
		RecentDays:     cfg.Topics.RecentDays,
	}, logger.With("component", "topics")), nil
}

// newBudget caps LLM calls per day and reports usage through m.
func newBudget(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *ratelimit.Budget {
	budget := ratelimit.NewBudget(cfg.Analysis.ProviderMaxCalls, cfg.Analysis.MaxCalls, 24*time.Hour, logger)
	m.SetBudgetSource(budget.GetStats)
	return budget
}

type stores struct {
	sink     storage.Sink
	links    storage.LinkHistory
	keywords topics.History
	close    func()
}

// openStorage prefers PostgreSQL, then a JSON file, then nothing.
func openStorage(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (stores, error) {
	s := stores{close: func() {}}
	if opts.DryRun {
		logger.Info("dry run, persistence disabled")
		return s, nil
	}

	if opts.OutPath == "" && cfg.Storage.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, storage.PostgresConfig{
			URL:        cfg.Storage.DatabaseURL,
			MaxConns:   cfg.Storage.MaxConns,
			InitSchema: cfg.Storage.InitSchema,
		}, logger)
		if err != nil {
			return s, err
		}
		s.sink, s.links, s.keywords, s.close = pg, pg, pg, pg.Close
		return s, nil
	}

	path := opts.OutPath
	if path == "" {
		path = cfg.Storage.FilePath
	}
	if path == "" {
		logger.Info("no store configured, results are not persisted")
		return s, nil
	}

	fs := storage.NewFileStore(path, time.Duration(cfg.Storage.HistoryHours)*time.Hour)
	if err := fs.Load(); err != nil {
		return s, err
	}
	if n := fs.Cleanup(); n > 0 {
		logger.Info("dropped expired items", "count", n)
	}
	s.sink, s.links = fs, fs
	logger.Info("using file store", "path", path)
	return s, nil
}

// openCache returns nil when caching is disabled.
func openCache(cfg *config.Config, logger *slog.Logger) (cache.Store, func()) {
	if !cfg.Cache.Enabled {
		return nil, func() {}
	}
	if cfg.Cache.RedisAddr != "" {
		r := cache.NewRedis(cache.NewRedisClient(cfg.Cache.RedisAddr), redisPrefix, logger)
		logger.Info("using redis detail cache", "addr", cfg.Cache.RedisAddr)
		return r, func() { _ = r.Close() }
	}
	m := cache.NewMemory(10 * time.Minute)
	return m, m.Close
}
