// Package hazelcast implements volley.Cache over a Hazelcast distributed
// map, storing each Entry gob-encoded under a "volleycache:"-prefixed,
// SHA-256-hashed key, with native per-entry TTL via Map.SetWithTTL.
package hazelcast

import (
	"context"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/volley-go/volley"
)

const keyPrefix = "volleycache:"

// Config configures a new Hazelcast client connection.
type Config struct {
	// ClusterName is the target cluster's name; empty uses the client
	// default ("dev").
	ClusterName string
	// Addresses lists member addresses to connect to; empty uses the
	// client default (127.0.0.1:5701).
	Addresses []string
	// MapName names the distributed map used for cache storage; defaults
	// to "volleycache".
	MapName string
}

// Cache stores gob-encoded entries in a Hazelcast IMap.
type Cache struct {
	client *hazelcast.Client
	m      *hazelcast.Map
}

func cacheKey(key string) string {
	return keyPrefix + volley.HashKey(key)
}

// New dials a Hazelcast cluster per config and returns a Cache bound to its
// configured map. The caller should call Close when done.
func New(ctx context.Context, config Config) (*Cache, error) {
	hzConfig := hazelcast.NewConfig()
	if config.ClusterName != "" {
		hzConfig.Cluster.Name = config.ClusterName
	}
	if len(config.Addresses) > 0 {
		hzConfig.Cluster.Network.SetAddresses(config.Addresses...)
	}

	client, err := hazelcast.StartNewClientWithConfig(ctx, hzConfig)
	if err != nil {
		return nil, fmt.Errorf("hazelcast: connect: %w", err)
	}

	mapName := config.MapName
	if mapName == "" {
		mapName = "volleycache"
	}
	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, fmt.Errorf("hazelcast: get map %q: %w", mapName, err)
	}

	return &Cache{client: client, m: m}, nil
}

// NewWithMap wraps an already-obtained Hazelcast map. Close becomes a no-op;
// the caller manages the client's lifetime.
func NewWithMap(m *hazelcast.Map) *Cache {
	return &Cache{m: m}
}

// Initialize implements volley.Cache; the map is ready as soon as New
// returns.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	val, err := c.m.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcast: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	raw, ok := val.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("hazelcast: unexpected value type for key %q", key)
	}
	entry, err := volley.DecodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache, using SetWithTTL when entry.TTL is set so
// Hazelcast reclaims stale entries without waiting on a cache dispatcher.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	ttl := time.Duration(0)
	if !entry.TTL.IsZero() {
		if d := time.Until(entry.TTL); d > 0 {
			ttl = d
		}
	}
	if ttl > 0 {
		err = c.m.SetWithTTL(ctx, cacheKey(key), raw, ttl)
	} else {
		err = c.m.Set(ctx, cacheKey(key), raw)
	}
	if err != nil {
		return fmt.Errorf("hazelcast: set %q: %w", key, err)
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
	if _, err := c.m.Remove(ctx, cacheKey(key)); err != nil {
		return fmt.Errorf("hazelcast: remove %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.m.Clear(ctx); err != nil {
		return fmt.Errorf("hazelcast: clear: %w", err)
	}
	return nil
}

// Close shuts down the Hazelcast client, if this Cache owns it.
func (c *Cache) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Shutdown(ctx)
}
