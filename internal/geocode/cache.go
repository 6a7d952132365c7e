package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/triplog/internal/record"
)

// DefaultCacheTTL is used when a cache is created with a non-positive TTL.
const DefaultCacheTTL = time.Hour

// Cache stores resolvable lookups keyed by rounded coordinates.
type Cache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Set(ctx context.Context, key string, resp Response) error
}

// CacheKey rounds to three decimals (about 100m) so nearby clicks share an entry.
func CacheKey(p record.Position) string {
	return fmt.Sprintf("revgeo:%.3f:%.3f", p.Lat, p.Lng)
}

// MemoryCache is a process-local Cache. Entries never expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Response
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Response)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Response, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.entries[key]
	return resp, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares lookups between processes through redis.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCache wraps a redis client. ttl <= 0 selects DefaultCacheTTL.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Response, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return Response{}, false, fmt.Errorf("redis get %s: decode: %w", key, err)
	}
	return resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis set %s: encode: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
