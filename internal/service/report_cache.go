package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// reportCache stores serialized day-analysis reports.
type reportCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisReportCache backs the analyzer's report cache with redis.
type RedisReportCache struct {
	client *redis.Client
}

// NewRedisReportCache wraps a redis client.
func NewRedisReportCache(client *redis.Client) *RedisReportCache {
	return &RedisReportCache{client: client}
}

// Get returns the cached value and whether the key existed.
func (c *RedisReportCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set stores a value with a TTL.
func (c *RedisReportCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete drops a key; missing keys are not an error.
func (c *RedisReportCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
