// Package marketcache
package marketcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL matches the market-list freshness window of the fetch pipeline.
const DefaultTTL = 6 * time.Hour

// Cache stores per-exchange market symbol lists between process runs, so
// short-lived CLI invocations do not re-download every exchange's full
// instrument list.
type Cache interface {
	Get(ctx context.Context, exchange string) ([]string, error)
	Set(ctx context.Context, exchange string, markets []string) error
}

// RedisCache is a Redis-backed Cache with per-key TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and returns a cache with the given TTL.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func key(exchange string) string {
	return "markets:" + exchange
}

// Get returns the cached market list for an exchange, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, exchange string) ([]string, error) {
	data, err := c.client.Get(ctx, key(exchange)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get markets from redis: %w", err)
	}
	var markets []string
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal markets: %w", err)
	}
	return markets, nil
}

// Set stores the market list for an exchange.
func (c *RedisCache) Set(ctx context.Context, exchange string, markets []string) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("failed to marshal markets: %w", err)
	}
	if err := c.client.Set(ctx, key(exchange), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set markets in redis: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
