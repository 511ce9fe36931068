// Package cache stores scraped article details between runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/deusflow/newscurator/internal/news"
)

// Store caches article details by link.
type Store interface {
	Get(ctx context.Context, link string) (news.Detail, bool)
	Set(ctx context.Context, link string, detail news.Detail, ttl time.Duration) error
}

// Key derives the storage key for an article link.
func Key(link string) string {
	h := sha256.Sum256([]byte(link))
	return hex.EncodeToString(h[:])
}

type entry struct {
	detail    news.Detail
	expiresAt time.Time
}

// Memory is an in-process Store with a periodic cleanup loop.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ Store = (*Memory)(nil)

// NewMemory starts a Memory store that sweeps expired entries every interval.
func NewMemory(interval time.Duration) *Memory {
	if interval <= 0 {
		interval = time.Hour
	}
	c := &Memory{
		items: make(map[string]entry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	go c.cleanupLoop(interval)

	return c
}

func (c *Memory) Set(_ context.Context, link string, detail news.Detail, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[Key(link)] = entry{
		detail:    detail,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *Memory) Get(_ context.Context, link string) (news.Detail, bool) {
	c.mu.RLock()
	e, exists := c.items[Key(link)]
	c.mu.RUnlock()

	if !exists || c.now().After(e.expiresAt) {
		return news.Detail{}, false
	}
	return e.detail, true
}

// Len returns the number of entries, expired ones included until the next sweep.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup loop.
func (c *Memory) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
		}
	}
}
