package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skyline/config"
	"github.com/redis/go-redis/v9"
)

const idempotencyInProgress = "PROCESSING"

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// AcquireSeatLock takes a short-lived lock on one seat of a flight while the
// inventory books it.
func (c *RedisCache) AcquireSeatLock(ctx context.Context, flightID string, row int, column string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(flightID, row, column), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, flightID string, row int, column string) error {
	return c.client.Del(ctx, seatLockKey(flightID, row, column)).Err()
}

// BeginIdempotent marks key as in progress. It returns false together with the
// stored response when the key was seen before; an empty stored response
// means the first request is still running.
func (c *RedisCache) BeginIdempotent(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	acquired, err := c.client.SetNX(ctx, idempotencyKey(key), idempotencyInProgress, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if acquired {
		return true, "", nil
	}

	stored, err := c.client.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, "", nil
		}
		return false, "", err
	}
	if stored == idempotencyInProgress {
		return false, "", nil
	}
	return false, stored, nil
}

func (c *RedisCache) CompleteIdempotent(ctx context.Context, key, response string, ttl time.Duration) error {
	return c.client.Set(ctx, idempotencyKey(key), response, ttl).Err()
}

// AbortIdempotent forgets key so the request can be retried.
func (c *RedisCache) AbortIdempotent(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func seatLockKey(flightID string, row int, column string) string {
	return fmt.Sprintf("lock:flight:%s:seat:%d%s", flightID, row, column)
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}
