// Package memorycache implements volley.Cache as an in-memory map. It is
// the default backend: no setup cost, no persistence across restarts.
package memorycache

import (
	"context"
	"sync"
	"time"

	"github.com/volley-go/volley"
)

// Cache stores entries in a plain map guarded by a RWMutex.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*volley.Entry
}

// New returns a Cache ready for use; Initialize is a no-op for this backend.
func New() *Cache {
	return &Cache{items: map[string]*volley.Entry{}}
}

// Initialize implements volley.Cache.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok, nil
}

// Put implements volley.Cache.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry
	return nil
}

// Invalidate implements volley.Cache. fullExpire also clears the entry's
// TTL so IsExpired reports true; otherwise only SoftTTL is cleared.
func (c *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil
	}
	e.SoftTTL = time.Time{}
	if fullExpire {
		e.TTL = time.Time{}
	}
	return nil
}

// Remove implements volley.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]*volley.Entry{}
	return nil
}
