package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateBackend counts requests in fixed one-minute windows shared by
// every instance pointing at the same Redis.
type RedisRateBackend struct {
	client redisCounter
	prefix string
	now    func() time.Time
}

func NewRedisRateBackend(client redisCounter, prefix string) *RedisRateBackend {
	if prefix == "" {
		prefix = "teamsync:ratelimit"
	}
	return &RedisRateBackend{client: client, prefix: prefix, now: time.Now}
}

func (b *RedisRateBackend) Allow(ctx context.Context, key string, perMinute int) (bool, error) {
	window := b.now().Unix() / 60
	windowKey := fmt.Sprintf("%s:%s:%d", b.prefix, key, window)

	count, err := b.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", windowKey, err)
	}
	if count == 1 {
		if err := b.client.Expire(ctx, windowKey, 2*time.Minute).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", windowKey, err)
		}
	}

	return count <= int64(perMinute), nil
}
