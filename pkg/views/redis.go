package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "view:"

// RedisCache keeps rendered views in Redis with a TTL.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("views"),
	}
}

func cacheKey(path string) string {
	return keyPrefix + path
}

func (c *RedisCache) Get(ctx context.Context, path string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cached view %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Corrupt entry: treat as a miss and let the caller overwrite it.
		c.logger.Warn("Discarding unreadable cached view",
			zap.String("path", path),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode view %s: %w", path, err)
	}
	if err := c.rdb.Set(ctx, cacheKey(path), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache view %s: %w", path, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, paths ...string) {
	paths = Dedupe(paths)
	if len(paths) == 0 {
		return
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = cacheKey(p)
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to invalidate views",
			zap.Strings("paths", paths),
			zap.Error(err))
		return
	}

	c.logger.Debug("Invalidated views", zap.Strings("paths", paths))
}
