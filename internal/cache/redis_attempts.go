// Package cache holds Redis-backed state shared between server instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptPrefix = "codesprint:attempt:"

// RedisAttempts implements grading.AttemptCounter with INCR, so attempt
// numbers stay monotonic across server instances.
type RedisAttempts struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisAttempts(client *redis.Client, ttl time.Duration) *RedisAttempts {
	return &RedisAttempts{client: client, ttl: ttl}
}

func (r *RedisAttempts) Begin(ctx context.Context, key string) (uint64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptPrefix+key)
	if r.ttl > 0 {
		pipe.Expire(ctx, attemptPrefix+key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin attempt: %w", err)
	}
	return uint64(incr.Val()), nil
}

func (r *RedisAttempts) Latest(ctx context.Context, key string) (uint64, error) {
	n, err := r.client.Get(ctx, attemptPrefix+key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt: %w", err)
	}
	return n, nil
}
