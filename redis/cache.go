package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache is a small versioned-key cache: bump the version counter on
// every write to a collection and any previously cached read of it is
// orphaned without an explicit invalidation scan. Every method is a
// no-op when Redis is down; the cache is an optimization, never a
// source of truth.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithField("error", err).Warn("cache marshal failed")
		return
	}

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		logrus.WithField("error", err).Warn("cache set failed")
	}
}

func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}

	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}

	if err := c.client.Incr(ctx, key).Err(); err != nil {
		logrus.WithField("error", err).Warn("cache version bump failed")
	}
}
