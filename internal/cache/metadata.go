package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// MetadataCache stores VideoMetadata as JSON in any Cache
type MetadataCache struct {
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewMetadataCache wraps c. A nil c disables caching.
func NewMetadataCache(c Cache, ttl time.Duration, logger zerolog.Logger) *MetadataCache {
	return &MetadataCache{cache: c, ttl: ttl, logger: logger}
}

// Get returns cached metadata; undecodable entries are dropped and read as a miss
func (m *MetadataCache) Get(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, bool) {
	if m == nil || m.cache == nil {
		return nil, false
	}

	key := CacheKey(ref)
	data, found := m.cache.Get(ctx, key)
	if !found {
		m.logger.Debug().Str("ref", ref.String()).Msg("cache miss")
		return nil, false
	}

	var meta model.VideoMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		m.logger.Warn().Err(err).Str("ref", ref.String()).Msg("dropping corrupt cache entry")
		_ = m.cache.Delete(ctx, key)
		return nil, false
	}

	m.logger.Debug().Str("ref", ref.String()).Msg("cache hit")
	return &meta, true
}

// Put stores metadata under its own ref
func (m *MetadataCache) Put(ctx context.Context, meta model.VideoMetadata) error {
	if m == nil || m.cache == nil {
		return nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, CacheKey(meta.Ref), data, m.ttl)
}

// Invalidate drops a ref
func (m *MetadataCache) Invalidate(ctx context.Context, ref model.VideoRef) error {
	if m == nil || m.cache == nil {
		return nil
	}
	return m.cache.Delete(ctx, CacheKey(ref))
}

// New builds the configured stack: memory, then Redis when a URL is set, else disk
// when a directory is set. Disabled config yields nil.
func New(ctx context.Context, cfg model.CacheConfig, logger zerolog.Logger) Cache {
	if !cfg.Enabled {
		return nil
	}

	layers := []Cache{NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)}
	switch {
	case cfg.RedisURL != "":
		if rc := NewRedisCache(ctx, cfg.RedisURL, cfg.DiskTTL, logger); rc.Enabled() {
			layers = append(layers, rc)
		}
	case cfg.DiskDir != "":
		layers = append(layers, NewDiskCache(cfg.DiskDir, cfg.DiskTTL))
	}

	if len(layers) == 1 {
		return layers[0]
	}
	return NewLayeredCache(layers...)
}
