package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskCache keeps one JSON file per key under dir, so metadata survives CLI runs
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

type diskEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (c *DiskCache) Get(ctx context.Context, key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return entry.Data, true
}

// Set writes through a temp file and rename so readers never see a torn entry.
// Values must be valid JSON.
func (c *DiskCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	if !json.Valid(value) {
		return fmt.Errorf("disk cache %s: value is not json", key)
	}

	data, err := json.Marshal(diskEntry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// Delete is a no-op for missing keys
func (c *DiskCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *DiskCache) Clear(ctx context.Context) error {
	return os.RemoveAll(c.dir)
}

// path maps a key to a file name; ':' is not portable in file names
func (c *DiskCache) path(key string) string {
	name := []byte(key)
	for i, b := range name {
		if b == ':' {
			name[i] = '_'
		}
	}
	return filepath.Join(c.dir, string(name)+".json")
}
