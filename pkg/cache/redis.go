package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumicast-ai/lumicast/pkg/config"
)

// RedisTier is a FastTier backed by Redis, for multi-instance deployments.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier connects to Redis and verifies it answers a ping.
func NewRedisTier(ctx context.Context, cfg config.RedisConfig) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisTier{client: client}, nil
}

// Get returns the value for key, or (nil, nil) when absent.
func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores value under key with expiry ttl.
func (r *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Del removes key.
func (r *RedisTier) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping probes the connection.
func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisTier) Close() error {
	return r.client.Close()
}
