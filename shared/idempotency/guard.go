package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/vasapolrittideah/social-login-api/shared/security"
)

// DefaultTTL covers the lifetime of an authorization code at every supported provider.
const DefaultTTL = 10 * time.Minute

var ErrDuplicateCallback = errors.New("callback already processed")

// Guard marks a (provider, code) pair as claimed. Acquire returns
// ErrDuplicateCallback when the pair was already claimed within the TTL.
type Guard interface {
	Acquire(ctx context.Context, provider, code string) error
}

// callbackKey never embeds the raw code.
func callbackKey(provider, code string) string {
	return fmt.Sprintf("auth:social_callback:%s:%s", provider, security.Fingerprint(code))
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a Guard shared by every replica through Redis.
func NewRedisGuard(client *redis.Client, ttl time.Duration) Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisGuard{client: client, ttl: ttl}
}

func (g *redisGuard) Acquire(ctx context.Context, provider, code string) error {
	claimed, err := g.client.SetNX(ctx, callbackKey(provider, code), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis_callback_guard_failed: %w", err)
	}
	if !claimed {
		return ErrDuplicateCallback
	}

	return nil
}

type memoryGuard struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryGuard creates a process-local Guard for single-replica deployments.
func NewMemoryGuard(ttl time.Duration) Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryGuard{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (g *memoryGuard) Acquire(_ context.Context, provider, code string) error {
	if err := g.cache.Add(callbackKey(provider, code), struct{}{}, g.ttl); err != nil {
		return ErrDuplicateCallback
	}

	return nil
}
