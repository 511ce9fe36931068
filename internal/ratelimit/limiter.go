package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum spacing between outbound calls. It is shared by
// every goroutine that talks to the same upstream; waiters are served in
// reservation order.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter returns a Limiter allowing one call per spacing. A non-positive
// spacing disables throttling.
func NewLimiter(spacing time.Duration) *Limiter {
	if spacing <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(spacing), 1)}
}

// Wait blocks until the next call may go out. It only fails when ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
