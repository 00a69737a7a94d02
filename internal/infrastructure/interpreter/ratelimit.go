package interpreter

import (
	"context"
	"fmt"
	"time"

	"github.com/doeshing/tasq/internal/domain"
)

// rateLimiter caps model calls per window. The counter restarts once a full
// window has passed since the previous call; at the cap, Wait sleeps out the
// rest of the window.
type rateLimiter struct {
	max    int
	window time.Duration
	last   time.Time
	count  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newRateLimiter(max int) *rateLimiter {
	if max <= 0 {
		max = domain.DefaultMaxAPICallsPerMinute
	}
	return &rateLimiter{
		max:    max,
		window: domain.RateLimitWindow,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Wait blocks until another call is allowed. Callers hold the interpreter
// lock, so the limiter itself is not synchronized.
func (r *rateLimiter) Wait(ctx context.Context) error {
	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) > r.window {
		r.count = 0
	}

	if r.count >= r.max {
		if elapsed := now.Sub(r.last); elapsed < r.window {
			if err := r.sleep(ctx, r.window-elapsed); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
			}
		}
		r.count = 0
		now = r.now()
	}

	r.last = now
	r.count++
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
