package similarity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL        = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Cache memoizes embeddings and pair scores by content hash.
// Implementations must return values that do not alias stored ones.
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, value []float64)
}

// NopCache stores nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]float64, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []float64)        {}

// MemoryCache is an in-process cache with per-entry expiration.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &MemoryCache{items: gocache.New(ttl, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float64, bool) {
	raw, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := raw.([]float64)
	if !ok {
		return nil, false
	}
	return cloneVector(vec), true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []float64) {
	c.items.Set(key, cloneVector(value), gocache.DefaultExpiration)
}

// Len reports the number of cached entries, including expired ones not yet cleaned up.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// RedisCache shares cached values between processes. Redis failures degrade
// to cache misses.
type RedisCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		c.logger.Debug("redis cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []float64) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Tiered checks a fast local cache before a shared one and back-fills the
// local cache on shared hits.
type Tiered struct {
	L1 Cache
	L2 Cache
}

func (t Tiered) Get(ctx context.Context, key string) ([]float64, bool) {
	if vec, ok := t.L1.Get(ctx, key); ok {
		return vec, true
	}

	vec, ok := t.L2.Get(ctx, key)
	if !ok {
		return nil, false
	}

	t.L1.Set(ctx, key, vec)
	return vec, true
}

func (t Tiered) Set(ctx context.Context, key string, value []float64) {
	t.L1.Set(ctx, key, value)
	t.L2.Set(ctx, key, value)
}

func cloneVector(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}
