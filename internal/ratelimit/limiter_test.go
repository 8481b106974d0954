package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, limit, time.Hour, zap.NewNop()), mr
}

func TestAllow_CountsWithinWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		status := limiter.Allow(ctx, "user-1")
		assert.False(t, status.Limited, "request %d", i)
		assert.Equal(t, i, status.CurrentCount)
		assert.Equal(t, 3-i, status.Remaining)
		assert.Equal(t, 3, status.Total)
	}

	status := limiter.Allow(ctx, "user-1")
	assert.True(t, status.Limited)
	assert.Equal(t, 0, status.Remaining)
	assert.Equal(t, 4, status.CurrentCount)
}

func TestAllow_IdentitiesAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	assert.False(t, limiter.Allow(ctx, "user-1").Limited)
	assert.True(t, limiter.Allow(ctx, "user-1").Limited)
	assert.False(t, limiter.Allow(ctx, "user-2").Limited, "another identity keeps its own counter")
}

func TestAllow_FailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2)
	mr.Close()

	status := limiter.Allow(context.Background(), "user-1")
	assert.False(t, status.Limited, "store outage must not reject requests")
	assert.Equal(t, 2, status.Remaining)
}

func TestStatus_DoesNotIncrement(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5)
	ctx := context.Background()

	limiter.Allow(ctx, "user-1")
	limiter.Allow(ctx, "user-1")

	first := limiter.Status(ctx, "user-1")
	second := limiter.Status(ctx, "user-1")
	assert.Equal(t, 2, first.CurrentCount)
	assert.Equal(t, 2, second.CurrentCount, "status reads must not consume quota")
	assert.Equal(t, 3, first.Remaining)
	assert.False(t, first.Limited)
}

func TestStatus_EmptyWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5)

	status := limiter.Status(context.Background(), "never-seen")
	assert.Equal(t, 0, status.CurrentCount)
	assert.Equal(t, 5, status.Remaining)
	assert.False(t, status.Limited)
	assert.False(t, status.ResetTime.IsZero())
}

func TestStatus_LimitedAtBoundary(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	limiter.Allow(ctx, "user-1")
	limiter.Allow(ctx, "user-1")

	status := limiter.Status(ctx, "user-1")
	assert.True(t, status.Limited, "at the limit the next request would be rejected")
	assert.Equal(t, 0, status.Remaining)
}

func TestAllow_WindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	ctx := context.Background()

	limiter.Allow(ctx, "user-1")
	assert.True(t, limiter.Allow(ctx, "user-1").Limited)

	// Advancing past the window expires the counter key.
	mr.FastForward(2 * time.Hour)
	assert.False(t, limiter.Allow(ctx, "user-1").Limited)
}

func TestNew_Defaults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := New(rdb, 0, 0, zap.NewNop())
	assert.Equal(t, 10, limiter.limit)
	assert.Equal(t, time.Hour, limiter.window)
}
