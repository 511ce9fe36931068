package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/topics"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS curated_news (
	link TEXT PRIMARY KEY,
	hash VARCHAR(16) NOT NULL,
	run_id UUID NOT NULL,
	title TEXT NOT NULL,
	original_link TEXT NOT NULL,
	description TEXT NOT NULL,
	published_at TEXT NOT NULL,
	content TEXT NOT NULL,
	image_url TEXT NOT NULL,
	journalist TEXT NOT NULL,
	media_name TEXT NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_curated_news_saved_at ON curated_news(saved_at);
CREATE INDEX IF NOT EXISTS idx_curated_news_run_id ON curated_news(run_id);

CREATE TABLE IF NOT EXISTS keyword_history (
	keyword TEXT NOT NULL,
	category VARCHAR(20) NOT NULL,
	used_date DATE NOT NULL,
	use_count INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (keyword, category, used_date)
);

CREATE INDEX IF NOT EXISTS idx_keyword_history_used_date ON keyword_history(used_date);
`

// PostgresStore persists curated items and keyword history in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger *slog.Logger
}

// PostgresConfig configures the connection pool.
type PostgresConfig struct {
	URL        string
	MaxConns   int32
	InitSchema bool
}

// NewPostgresStore connects, pings and optionally creates the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool, now: time.Now, logger: logger}
	if cfg.InitSchema {
		if err := store.initSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("PostgreSQL store connected")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.logger.Info("database schema initialized")
	return nil
}

// Save upserts items in one batch; a link saved before moves to this run.
func (s *PostgresStore) Save(ctx context.Context, runID string, items []news.EnrichedItem) error {
	if len(items) == 0 {
		return nil
	}

	now := s.now()
	batch := &pgx.Batch{}
	for _, item := range items {
		query, args, err := insertItemQuery(runID, item, now)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save curated item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) RecentLinks(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := recentLinksQuery(since)
	if err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, query, args)
}

// SaveKeywords records kw as used on day, bumping the count of repeats.
func (s *PostgresStore) SaveKeywords(ctx context.Context, kw topics.Keywords, day time.Time) error {
	batch := &pgx.Batch{}
	for category, list := range kw {
		for _, k := range list {
			query, args, err := upsertKeywordQuery(k, category, day)
			if err != nil {
				return err
			}
			batch.Queue(query, args...)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save keyword history: %w", err)
		}
	}
	return nil
}

// OverusedKeywords returns keywords used at least minUses times since since.
func (s *PostgresStore) OverusedKeywords(ctx context.Context, since time.Time, minUses int) ([]string, error) {
	query, args, err := overusedKeywordsQuery(since, minUses)
	if err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, query, args)
}

func (s *PostgresStore) KeywordsOn(ctx context.Context, day time.Time) ([]string, error) {
	query, args, err := keywordsOnQuery(day)
	if err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, query, args)
}

func (s *PostgresStore) RecentKeywords(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := recentKeywordsQuery(since)
	if err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, query, args)
}

// Cleanup removes curated items saved before the cutoff.
func (s *PostgresStore) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := psql.Delete("curated_news").Where(sq.Lt{"saved_at": before}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build cleanup query: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Info("cleaned up old curated items", "rows", n)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) queryStrings(ctx context.Context, query string, args []interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return out, nil
}

func insertItemQuery(runID string, item news.EnrichedItem, now time.Time) (string, []interface{}, error) {
	query, args, err := psql.Insert("curated_news").
		Columns("link", "hash", "run_id", "title", "original_link", "description", "published_at",
			"content", "image_url", "journalist", "media_name", "saved_at").
		Values(item.Link, Fingerprint(item.Title, item.Link), runID, item.Title, item.OriginalLink,
			item.Description, item.PublishedAt, item.Content, item.ImageURL, item.Journalist, item.MediaName, now).
		Suffix("ON CONFLICT (link) DO UPDATE SET run_id = EXCLUDED.run_id, saved_at = EXCLUDED.saved_at").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert query: %w", err)
	}
	return query, args, nil
}

func recentLinksQuery(since time.Time) (string, []interface{}, error) {
	return psql.Select("link").From("curated_news").Where(sq.Gt{"saved_at": since}).ToSql()
}

func upsertKeywordQuery(keyword string, category news.Category, day time.Time) (string, []interface{}, error) {
	return psql.Insert("keyword_history").
		Columns("keyword", "category", "used_date", "use_count").
		Values(keyword, string(category), day, 1).
		Suffix("ON CONFLICT (keyword, category, used_date) DO UPDATE SET use_count = keyword_history.use_count + 1").
		ToSql()
}

func overusedKeywordsQuery(since time.Time, minUses int) (string, []interface{}, error) {
	return psql.Select("keyword").From("keyword_history").
		Where(sq.GtOrEq{"used_date": since}).
		GroupBy("keyword").
		Having("SUM(use_count) >= ?", minUses).
		ToSql()
}

func keywordsOnQuery(day time.Time) (string, []interface{}, error) {
	return psql.Select("keyword").Distinct().From("keyword_history").
		Where(sq.Eq{"used_date": day}).
		ToSql()
}

func recentKeywordsQuery(since time.Time) (string, []interface{}, error) {
	return psql.Select("keyword").From("keyword_history").
		Where(sq.GtOrEq{"used_date": since}).
		GroupBy("keyword").
		OrderBy("MAX(used_date) DESC").
		ToSql()
}
