package ratelimiter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) *RedisLuaLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, NewBucketConfigFromPerMinute(perMinute))
}

func TestAllowWithinBudget(t *testing.T) {
	l := newTestLimiter(t, 10)
	for i := 0; i < 10; i++ {
		allowed, _, err := l.Allow(context.Background(), "school-1", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
}

func TestDeniesWhenExhausted(t *testing.T) {
	l := newTestLimiter(t, 3)
	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(context.Background(), "school-1", 1)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, retryAfter, err := l.Allow(context.Background(), "school-1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter.Seconds(), 0.0)
}

func TestKeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1)
	allowed, _, err := l.Allow(context.Background(), "school-1", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = l.Allow(context.Background(), "school-2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "a different key has its own bucket")

	allowed, _, err = l.Allow(context.Background(), "school-1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *RedisLuaLimiter
	allowed, retryAfter, err := l.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestZeroBudgetAllowsEverything(t *testing.T) {
	l := newTestLimiter(t, 0)
	allowed, _, err := l.Allow(context.Background(), "school-1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLuaLimiter(rdb, NewBucketConfigFromPerMinute(10))
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "school-1", 1)
	require.Error(t, err)
	assert.True(t, allowed, "a throttle outage must not block intake")
}
