package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "barsim:sweep:"
	DefaultRedisTTL    = 7 * 24 * time.Hour
)

// Cache stores metrics by configuration key. Put keeps the first value written
// for a key, racing writers of the same key are not an error.
type Cache interface {
	Get(ctx context.Context, key string) (Metrics, bool, error)
	PutIfAbsent(ctx context.Context, key string, metrics Metrics) error
}

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Metrics
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Metrics)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Metrics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	return m, ok, nil
}

func (c *MemoryCache) PutIfAbsent(_ context.Context, key string, metrics Metrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = metrics
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares results between sweep processes.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// DialRedis connects and pings addr.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Metrics, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Metrics{}, false, nil
		}
		return Metrics{}, false, fmt.Errorf("redis: get %s: %w", key, err)
	}

	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return Metrics{}, false, fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return m, true, nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, key string, metrics Metrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := c.rdb.SetNX(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: setnx %s: %w", key, err)
	}
	return nil
}
