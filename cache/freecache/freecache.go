// Package freecache implements volley.Cache over coocood/freecache, a
// zero-GC-overhead in-memory store with built-in LRU eviction, well suited
// to caching millions of entries without per-object GC pressure.
package freecache

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/volley-go/volley"
)

// Cache stores gob-encoded entries in a freecache.Cache.
type Cache struct {
	cache *freecache.Cache
}

// New creates a Cache with the given size in bytes (freecache enforces a
// 512KB minimum).
func New(size int) *Cache {
	return &Cache{cache: freecache.NewCache(size)}
}

// Initialize implements volley.Cache; freecache needs no setup step.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	raw, err := c.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecache: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache, using freecache's native per-entry expiration
// when entry.TTL is set so the LRU store reclaims stale data on its own.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	var expireSeconds int
	if !entry.TTL.IsZero() {
		if d := time.Until(entry.TTL); d > 0 {
			expireSeconds = int(d / time.Second)
		}
	}
	if err := c.cache.Set([]byte(key), raw, expireSeconds); err != nil {
		return fmt.Errorf("freecache: set %q: %w", key, err)
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
	entry.SoftTTL = time.Time{}
	if fullExpire {
		entry.TTL = time.Time{}
	}
	return c.Put(ctx, key, entry)
}

// Remove implements volley.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.cache.Clear()
	return nil
}
