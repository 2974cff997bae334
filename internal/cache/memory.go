package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process expiring map
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired items are swept every cleanupInterval
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	b, ok := val.([]byte)
	return b, ok
}

// Set stores a copy of value so callers may reuse their buffer
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.cache.Flush()
	return nil
}

// Len reports how many unexpired items are held
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
