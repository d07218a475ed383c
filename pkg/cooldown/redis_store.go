package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis so cooldowns are shared across worker
// processes and survive restarts. Each key maps to a Redis key with the
// window as its TTL; SET NX makes acquisition atomic across claimers.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a Redis-backed cooldown store.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreNil
	}
	if keyPrefix == "" {
		keyPrefix = "cooldown"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

// Acquire implements Store.
func (rs *RedisStore) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	redisKey := rs.key(key)

	ok, err := rs.client.SetNX(ctx, redisKey, 1, window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to acquire cooldown for %q: %w", key, err)
	}
	if ok {
		return true, 0, nil
	}

	ttl, err := rs.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read cooldown TTL for %q: %w", key, err)
	}
	if ttl < 0 {
		// Key expired between SetNX and PTTL; treat as immediately retryable.
		ttl = 0
	}
	return false, ttl, nil
}

// Reset implements Store.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset cooldown for %q: %w", key, err)
	}
	return nil
}

func (rs *RedisStore) key(key string) string {
	return rs.keyPrefix + ":" + key
}
