package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ogseo:analysis:"

// Redis stores analyses in Redis with a per-key TTL
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Ping verifies the connection, used at startup
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached analysis: %w", err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
