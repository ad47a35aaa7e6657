package collector

import (
	"context"
	"time"

	"github.com/kpizzy812/futures-scenario-engine/logger"
)

// withRetry ports the attempt-count/log-and-sleep shape of
// provider/data_provider.go's Get*Data retry loops, but trades the
// teacher's fixed 2s sleep for exponential backoff per spec §4.1 ("bounded
// retry, exponential backoff, max 3"), and sleeps against ctx so a
// caller's deadline still cuts the loop short.
func withRetry(ctx context.Context, maxAttempts int, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<uint(attempt-2)) * time.Second // 1s, 2s, 4s, ...
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			logger.Warnf("retry attempt %d/%d after %v backoff", attempt, maxAttempts, backoff)
		}

		if err := op(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
