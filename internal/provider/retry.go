package provider

import (
	"context"
	"fmt"
	"time"
)

// Retry defaults for the backend contract.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// RetryConfig controls the shared retry-with-backoff helper.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// WithRetry runs fn up to cfg.MaxRetries times. Terminal errors (auth,
// bad request, quota, malformed output) return immediately; everything else
// waits baseDelay * 2^(attempt-1) and retries. Exhausting retries re-raises
// the last error.
func WithRetry(ctx context.Context, backend string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := cfg.BaseDelay * time.Duration(1<<uint(attempt-2))
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return Classify(backend, ctx.Err())
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		be := Classify(backend, err)
		if be.Terminal() {
			return be
		}
		if ctx.Err() != nil {
			return Classify(backend, ctx.Err())
		}
		lastErr = be
	}

	return &BackendError{
		Backend: backend,
		Kind:    lastErr.(*BackendError).Kind,
		Err:     fmt.Errorf("max retries exceeded: %w", lastErr.(*BackendError).Err),
	}
}
