// Package cache provides a Redis client wrapper used to memoize the
// rendered export envelope of the active dataset.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const exportKey = "pharmquiz:dataset:export"

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New creates a new cache client.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// GetExport returns the cached export envelope, or ok=false on a miss.
func (c *Cache) GetExport(ctx context.Context) ([]byte, bool) {
	data, err := c.Client.Get(ctx, exportKey).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetExport stores the rendered export envelope.
func (c *Cache) SetExport(ctx context.Context, data []byte, ttl time.Duration) error {
	if err := c.Client.Set(ctx, exportKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("caching export: %w", err)
	}
	return nil
}

// InvalidateExport drops the cached envelope. Called whenever an
// override is imported, activated, deactivated, or deleted.
func (c *Cache) InvalidateExport(ctx context.Context) error {
	if err := c.Client.Del(ctx, exportKey).Err(); err != nil {
		return fmt.Errorf("invalidating export cache: %w", err)
	}
	return nil
}
