package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CacheStore is the snapshot store behind CacheService.
type CacheStore interface {
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Forget(ctx context.Context, keys ...string) error
}

// CacheService is a read-through cache. Store failures degrade to direct
// loads; they are logged and never returned.
type CacheService struct {
	store   CacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCacheService constructs a cache. A nil store or enabled=false yields a
// cache that always loads.
func NewCacheService(store CacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if !enabled {
		store = nil
	}
	return &CacheService{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

func (c *CacheService) active() bool { return c != nil && c.store != nil }

// Remember returns the value cached at key, calling load and caching its
// result on a miss.
func Remember[T any](ctx context.Context, c *CacheService, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.active() {
		return load(ctx)
	}

	var cached T
	start := time.Now()
	hit, err := c.store.Load(ctx, key, &cached)
	c.metrics.RecordCacheOperation(hit && err == nil, time.Since(start))
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit && err == nil {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	start = time.Now()
	if err := c.store.Store(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.ObserveCacheWrite(time.Since(start))
	return value, nil
}

// Forget drops keys. Errors are logged.
func (c *CacheService) Forget(ctx context.Context, keys ...string) {
	if !c.active() {
		return
	}
	if err := c.store.Forget(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
