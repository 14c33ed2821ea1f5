package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations out to a per-minute budget. The bucket holds
// at most one token, so callers never burst past the steady rate.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // time to refill one token
	tokens   float64
	last     time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		tokens:   1,
		last:     time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += float64(now.Sub(rl.last)) / float64(rl.interval)
		if rl.tokens > 1 {
			rl.tokens = 1
		}
		rl.last = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
