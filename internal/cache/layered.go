package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache checks layers in order and promotes hits into the faster layers above
type LayeredCache struct {
	layers []Cache
}

// NewLayeredCache stacks caches, fastest first
func NewLayeredCache(layers ...Cache) *LayeredCache {
	return &LayeredCache{layers: layers}
}

func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, layer := range c.layers {
		val, found := layer.Get(ctx, key)
		if !found {
			continue
		}
		for _, upper := range c.layers[:i] {
			_ = upper.Set(ctx, key, val, 0)
		}
		return val, true
	}
	return nil, false
}

// Set writes every layer and joins their errors
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Set(ctx, key, value, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Clear(ctx context.Context) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
