// Package memcache implements volley.Cache over a memcached server using
// gomemcache, storing each Entry gob-encoded under a "volleycache:"-prefixed,
// SHA-256-hashed key with memcached's native item expiration.
package memcache

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/volley-go/volley"
)

const keyPrefix = "volleycache:"

// Cache stores gob-encoded entries in memcached.
type Cache struct {
	client *memcache.Client
}

// New returns a Cache talking to the given memcached servers (host:port).
func New(servers ...string) *Cache {
	return &Cache{client: memcache.New(servers...)}
}

// NewWithClient wraps an already-configured gomemcache client.
func NewWithClient(client *memcache.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(key string) string {
	return keyPrefix + volley.HashKey(key)
}

// Initialize implements volley.Cache; the gomemcache client is ready to use
// as soon as it's constructed.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	item, err := c.client.Get(cacheKey(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcache: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(item.Value)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache. memcached's Item.Expiration is capped at 30
// days (2592000s); TTLs further out are capped to 30 days, which keeps the
// value a relative number of seconds (memcached reads larger values as a
// Unix timestamp).
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	var expiration int32
	if !entry.TTL.IsZero() {
		if d := time.Until(entry.TTL); d > 0 {
			secs := int64(d / time.Second)
			const maxRelative = 60 * 60 * 24 * 30
			if secs > maxRelative {
				secs = maxRelative
			}
			expiration = int32(secs)
		}
	}
	item := &memcache.Item{
		Key:        cacheKey(key),
		Value:      raw,
		Expiration: expiration,
	}
	if err := c.client.Set(item); err != nil {
		return fmt.Errorf("memcache: set %q: %w", key, err)
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

// Remove implements volley.Cache. Deleting an absent key is not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.client.Delete(cacheKey(key)); err != nil && err != memcache.ErrCacheMiss {
		return fmt.Errorf("memcache: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by flushing the entire memcached instance;
// gomemcache has no prefix-scoped delete, so this affects any non-volley
// keys sharing the server too.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.client.FlushAll(); err != nil {
		return fmt.Errorf("memcache: flush all: %w", err)
	}
	return nil
}
