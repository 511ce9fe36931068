package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deusflow/newscurator/internal/news"
)

// Redis is a Store backed by a Redis server. Entries are JSON documents.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ Store = (*Redis)(nil)

// NewRedisClient connects to addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) key(link string) string {
	return r.prefix + Key(link)
}

// Get treats any Redis failure as a miss so a flaky cache never blocks a crawl.
func (r *Redis) Get(ctx context.Context, link string) (news.Detail, bool) {
	raw, err := r.client.Get(ctx, r.key(link)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failure", "link", link, "error", err)
		}
		return news.Detail{}, false
	}

	var d news.Detail
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		r.logger.Warn("corrupt cached detail", "link", link, "error", err)
		return news.Detail{}, false
	}
	return d, true
}

func (r *Redis) Set(ctx context.Context, link string, detail news.Detail, ttl time.Duration) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}
	if err := r.client.Set(ctx, r.key(link), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failure: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
