// Package cache provides the optional Redis page cache for leaderboard reads.
// The cache is never authoritative: every failure degrades to a Postgres read.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/campushire/ranking-backend/internal/logger"
)

// Redis caches serialized leaderboard pages with a TTL. The builder deletes a
// scope's page on publish, so a page never outlives its snapshot by more than
// one read.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the Redis server.
func NewRedis(addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	logger.Success("Connected to Redis at %s", addr)
	return &Redis{client: client, ttl: ttl}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("cache get %s: %v", key, err)
		}
		return nil, false
	}
	return raw, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		logger.Debug("cache set %s: %v", key, err)
	}
}

func (c *Redis) Del(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Debug("cache del %s: %v", key, err)
	}
}

// Close releases the underlying connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}
