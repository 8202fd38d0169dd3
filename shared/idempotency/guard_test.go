package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_Acquire(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard(time.Minute)

	require.NoError(t, guard.Acquire(ctx, "google", "code-1"))
	assert.ErrorIs(t, guard.Acquire(ctx, "google", "code-1"), ErrDuplicateCallback)

	assert.NoError(t, guard.Acquire(ctx, "google", "code-2"))
	assert.NoError(t, guard.Acquire(ctx, "kakao", "code-1"))
}

func TestMemoryGuard_Expires(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard(20 * time.Millisecond)

	require.NoError(t, guard.Acquire(ctx, "naver", "code"))
	time.Sleep(40 * time.Millisecond)
	assert.NoError(t, guard.Acquire(ctx, "naver", "code"))
}

func TestMemoryGuard_ConcurrentCallbacks(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard(time.Minute)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Acquire(ctx, "apple", "same-code") == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestCallbackKey(t *testing.T) {
	key := callbackKey("google", "4/0AX4XfWh-secret")

	assert.Contains(t, key, "auth:social_callback:google:")
	assert.NotContains(t, key, "secret")
}
