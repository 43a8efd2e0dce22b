package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alturatime/backend/common/logger"
)

// RedisCache is a Cache backed by a shared Redis instance, for deployments
// running more than one service replica.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisCache wraps client as a Cache. All keys are namespaced under
// prefix so the cache can share a Redis database with the rate limiter.
func NewRedisCache(client *redis.Client, prefix string, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("cache GET failed", "key", key, "error", err)
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.namespaced(key), value, ttl).Err(); err != nil {
		c.log.Error("cache SET failed", "key", key, "error", err)
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespaced(key)).Err(); err != nil {
		c.log.Error("cache DEL failed", "key", key, "error", err)
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
