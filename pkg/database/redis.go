package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/melontrace/melontrace-engine/pkg/config"
	"github.com/melontrace/melontrace-engine/pkg/retry"
)

// NewRedisClient creates a Redis client for the view cache.
// Returns nil if Redis is not configured (host is empty).
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, retryCfg *retry.Config) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.DoIfRetryable(ctx, retryCfg, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
