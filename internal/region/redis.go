package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is the subset of the Redis client the cache needs.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares region lookups between service instances through Redis.
// Redis failures fall through to the wrapped locator, so an unavailable cache
// only costs latency.
type RedisCache struct {
	inner   Locator
	store   redisStore
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisCache creates a Redis-backed decorator around inner.
func NewRedisCache(inner Locator, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return newRedisCache(inner, client, ttl, logger)
}

func newRedisCache(inner Locator, store redisStore, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		timeout: 500 * time.Millisecond,
		logger:  logger,
	}
}

func (c *RedisCache) Locate(lat, lon float64) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	key := redisKey(lat, lon)
	tag, err := c.store.Get(ctx, key).Result()
	if err == nil && tag != "" {
		return tag
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("region cache read failed", "key", key, "error", err)
	}

	tag = c.inner.Locate(lat, lon)
	if err := c.store.Set(ctx, key, tag, c.ttl).Err(); err != nil {
		c.logger.Warn("region cache write failed", "key", key, "error", err)
	}
	return tag
}

func redisKey(lat, lon float64) string {
	return fmt.Sprintf("region:%.6f:%.6f", lat, lon)
}
