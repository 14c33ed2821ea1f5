package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, up to maxAttempts, doubling the wait
// between attempts starting from baseDelay. All attempts failing returns the
// last error; a context cancellation during a backoff wait wins over the
// pending retry.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		wait := baseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
