package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a prefixed string cache on top of Redis.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new Cache. An empty prefix defaults to "fundledger:cache:".
func NewCache(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "fundledger:cache:"
	}
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a value by key. A missing key returns redis.Nil.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, c.prefix+key).Bytes()
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// SetNX sets a value only if it doesn't exist.
func (c *Cache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.prefix+key, value, ttl).Result()
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}
