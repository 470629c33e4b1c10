package redis

import (
	"context"

	"yourloops-dashboard/common/config"

	"github.com/go-redis/redis/v8"
)

// Client aliases the go-redis client so callers only import this package.
type Client = redis.Client

// NewRedisClient creates a client; it does not dial until first use.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close is nil-safe.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
