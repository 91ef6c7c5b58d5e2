// Package diskcache implements volley.Cache using diskv for persistent,
// file-backed storage: each Entry is gob-encoded and written as one file
// named by the SHA-256 hash of its key.
package diskcache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/peterbourgon/diskv"
	"github.com/volley-go/volley"
)

var zeroTime time.Time

// Cache stores gob-encoded entries on disk via diskv.
type Cache struct {
	d *diskv.Diskv
}

// New returns a Cache that stores files under basePath, capped at 100MB of
// in-memory diskv cache (the on-disk store itself is unbounded).
func New(basePath string) *Cache {
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv builds a Cache over an already-configured diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Cache {
	return &Cache{d: d}
}

// Initialize implements volley.Cache; diskv requires no setup step.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	raw, err := c.d.Read(volley.HashKey(key))
	if err != nil {
		return nil, false, nil
	}
	entry, err := volley.DecodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.d.WriteStream(volley.HashKey(key), bytes.NewReader(raw), true); err != nil {
		return fmt.Errorf("diskcache: write %q: %w", key, err)
	}
	return nil
}

// Invalidate implements volley.Cache by rewriting the stored entry with its
// TTL/SoftTTL cleared.
func (c *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	entry, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	entry.SoftTTL = zeroTime
	if fullExpire {
		entry.TTL = zeroTime
	}
	return c.Put(ctx, key, entry)
}

// Remove implements volley.Cache. Erasing an absent key is not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	_ = c.d.Erase(volley.HashKey(key))
	return nil
}

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	return c.d.EraseAll()
}
