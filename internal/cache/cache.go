// Package cache holds short-lived copies of resolved video metadata in front of the store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// KeyPrefix namespaces every key this package writes
const KeyPrefix = "ballotcheck:v1:"

// Cache is a byte-oriented TTL cache. A zero ttl means the implementation's default.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// CacheKey derives the metadata key for a video ref
func CacheKey(ref model.VideoRef) string {
	hash := sha256.Sum256([]byte(ref.Key()))
	return KeyPrefix + "meta:" + hex.EncodeToString(hash[:16])
}
