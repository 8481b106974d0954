// Package ratelimit implements the per-user request counting collaborator:
// an atomic increment against a windowed counter keyed by identity, with a
// fail-open policy when the store is unavailable.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Status is the read-only view of one identity's current window.
type Status struct {
	Remaining    int       `json:"remaining"`
	Total        int       `json:"total"`
	ResetTime    time.Time `json:"resetTime"`
	CurrentCount int       `json:"currentCount"`
	Limited      bool      `json:"limited"`
}

// Limiter counts requests per identity in fixed windows backed by Redis.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// New creates a limiter. limit is requests per window.
func New(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Limiter{rdb: rdb, limit: limit, window: window, logger: logger}
}

func (l *Limiter) key(identity string, now time.Time) (string, time.Time) {
	windowStart := now.Truncate(l.window)
	return fmt.Sprintf("ratelimit:%s:%d", identity, windowStart.Unix()), windowStart
}

// Allow atomically increments the identity's counter and reports whether
// the request is within the limit. If Redis is unavailable the request is
// allowed (fail-open) and the failure is logged.
func (l *Limiter) Allow(ctx context.Context, identity string) Status {
	now := time.Now()
	key, windowStart := l.key(identity, now)
	reset := windowStart.Add(l.window)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.String("identity", identity),
			zap.Error(err))
		return Status{Remaining: l.limit, Total: l.limit, ResetTime: reset}
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Remaining:    remaining,
		Total:        l.limit,
		ResetTime:    reset,
		CurrentCount: count,
		Limited:      count > l.limit,
	}
}

// Status reads the identity's current window without incrementing.
func (l *Limiter) Status(ctx context.Context, identity string) Status {
	now := time.Now()
	key, windowStart := l.key(identity, now)
	reset := windowStart.Add(l.window)

	count, err := l.rdb.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.String("identity", identity),
			zap.Error(err))
		return Status{Remaining: l.limit, Total: l.limit, ResetTime: reset}
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Remaining:    remaining,
		Total:        l.limit,
		ResetTime:    reset,
		CurrentCount: count,
		Limited:      count >= l.limit,
	}
}
