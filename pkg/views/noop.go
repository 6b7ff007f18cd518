package views

import (
	"context"

	"go.uber.org/zap"
)

// LogCache is used when Redis is not configured. Every read misses and
// invalidations are only logged.
type LogCache struct {
	logger *zap.Logger
}

var _ Cache = (*LogCache)(nil)

func NewLogCache(logger *zap.Logger) *LogCache {
	return &LogCache{logger: logger.Named("views")}
}

func (c *LogCache) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (c *LogCache) Set(context.Context, string, any) error {
	return nil
}

func (c *LogCache) Invalidate(_ context.Context, paths ...string) {
	paths = Dedupe(paths)
	if len(paths) == 0 {
		return
	}
	c.logger.Debug("Views changed", zap.Strings("paths", paths))
}
