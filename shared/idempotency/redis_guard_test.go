package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisGuard(t *testing.T, ttl time.Duration) (Guard, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisGuard(client, ttl), server
}

func TestRedisGuard_Acquire(t *testing.T) {
	ctx := context.Background()
	guard, server := newTestRedisGuard(t, time.Minute)

	require.NoError(t, guard.Acquire(ctx, "google", "code-1"))
	assert.ErrorIs(t, guard.Acquire(ctx, "google", "code-1"), ErrDuplicateCallback)

	assert.NoError(t, guard.Acquire(ctx, "google", "code-2"))
	assert.NoError(t, guard.Acquire(ctx, "kakao", "code-1"))

	key := callbackKey("google", "code-1")
	assert.True(t, server.Exists(key))
	assert.Equal(t, time.Minute, server.TTL(key))
	assert.Len(t, server.Keys(), 3)
}

func TestRedisGuard_Expires(t *testing.T) {
	ctx := context.Background()
	guard, server := newTestRedisGuard(t, time.Minute)

	require.NoError(t, guard.Acquire(ctx, "naver", "code"))
	server.FastForward(2 * time.Minute)

	assert.NoError(t, guard.Acquire(ctx, "naver", "code"))
}

func TestRedisGuard_DefaultTTL(t *testing.T) {
	guard, server := newTestRedisGuard(t, 0)

	require.NoError(t, guard.Acquire(context.Background(), "apple", "code"))
	assert.Equal(t, DefaultTTL, server.TTL(callbackKey("apple", "code")))
}

func TestRedisGuard_ConcurrentCallbacks(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestRedisGuard(t, time.Minute)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Acquire(ctx, "google", "burst") == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestRedisGuard_BackendFailure(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	guard := NewRedisGuard(client, time.Minute)
	server.Close()

	err = guard.Acquire(context.Background(), "google", "code")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateCallback)
	assert.Contains(t, err.Error(), "redis_callback_guard_failed")
}
