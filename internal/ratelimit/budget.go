package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned by Use when a provider or the total cap is reached.
var ErrBudgetExhausted = errors.New("call budget exhausted")

// Budget caps paid API calls per provider and in total, resetting every window.
type Budget struct {
	mu        sync.Mutex
	used      map[string]int
	limits    map[string]int
	total     int
	maxTotal  int
	window    time.Duration
	resetTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewBudget creates a budget. A zero limit means unlimited.
func NewBudget(limits map[string]int, maxTotal int, window time.Duration, logger *slog.Logger) *Budget {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Budget{
		used:     make(map[string]int),
		limits:   make(map[string]int, len(limits)),
		maxTotal: maxTotal,
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
	for k, v := range limits {
		b.limits[k] = v
	}
	b.resetTime = b.now().Add(window)
	return b
}

// CanUse reports whether a call to provider would be allowed.
func (b *Budget) CanUse(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.check(provider) == nil
}

// Use records one call to provider, or returns ErrBudgetExhausted.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if err := b.check(provider); err != nil {
		b.logger.Warn("call budget reached", "provider", provider, "used", b.used[provider], "total", b.total)
		return err
	}

	b.used[provider]++
	b.total++
	b.logger.Debug("call budget usage", "provider", provider,
		"used", b.used[provider], "limit", b.limits[provider],
		"total", b.total, "total_limit", b.maxTotal)
	return nil
}

// GetStats returns current usage.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"reset_time":  b.resetTime.Format(time.RFC3339),
	}
	for p, n := range b.used {
		stats[p+"_used"] = n
	}
	for p, n := range b.limits {
		stats[p+"_limit"] = n
	}
	return stats
}

func (b *Budget) check(provider string) error {
	if limit := b.limits[provider]; limit > 0 && b.used[provider] >= limit {
		return fmt.Errorf("%s: %w (%d/%d)", provider, ErrBudgetExhausted, b.used[provider], limit)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total: %w (%d/%d)", ErrBudgetExhausted, b.total, b.maxTotal)
	}
	return nil
}

// checkReset must be called with mu held.
func (b *Budget) checkReset() {
	if b.now().After(b.resetTime) {
		b.logger.Info("resetting call budget", "total_used", b.total)
		b.used = make(map[string]int)
		b.total = 0
		b.resetTime = b.now().Add(b.window)
	}
}
