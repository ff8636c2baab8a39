package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares windows between server instances. A window is a
// counter key whose expiry is set on the first hit.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	key = s.prefix + key

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, length).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		return 1, now.Add(length), nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl < 0 {
		// Counter lost its expiry; give it a fresh window.
		if err := s.client.PExpire(ctx, key, length).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		ttl = length
	}

	return int(count), now.Add(ttl), nil
}
