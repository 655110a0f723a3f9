// Package cache provides a small lookup cache for external API responses
// (site listings, linked-account lookups). The default backend is an
// in-process map; a redis backend can be enabled so that multiple instances
// share lookups. Values are msgpack-encoded.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores encoded values under string keys with a per-entry TTL.
type Cache interface {
	// Get decodes the entry for key into target; found reports whether a
	// live entry existed.
	Get(ctx context.Context, key string, target any) (found bool, err error)
	// Set stores value under key for the passed TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the default in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get decodes the entry for key into target
func (c *MemoryCache) Get(_ context.Context, key string, target any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := msgpack.Unmarshal(e.data, target); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key for the passed TTL
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache is a Cache backed by redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache connected to the passed address.
func NewRedisCache(addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Get decodes the entry for key into target
func (c *RedisCache) Get(ctx context.Context, key string, target any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err = msgpack.Unmarshal(data, target); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key for the passed TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
