package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache shares metadata between processes. A nil client turns every
// operation into a no-op miss, so a missing Redis degrades to no shared cache.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to redisURL. An empty URL, a bad URL or a failed
// ping all yield a disabled cache rather than an error.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if redisURL == "" {
		logger.Debug().Msg("redis: no URL configured, shared cache disabled")
		return &RedisCache{ttl: ttl}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis: invalid URL, shared cache disabled")
		return &RedisCache{ttl: ttl}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, shared cache disabled")
		_ = rdb.Close()
		return &RedisCache{ttl: ttl}
	}

	logger.Info().Msg("redis: connected, shared cache enabled")
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisCacheWithClient wraps an existing client; nil is allowed
func NewRedisCacheWithClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a live client is attached
func (c *RedisCache) Enabled() bool {
	return c.rdb != nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.rdb == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Del(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Clear removes only keys under KeyPrefix
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close releases the client
func (c *RedisCache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
