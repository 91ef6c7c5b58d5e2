// Package multicache provides a multi-tiered volley.Cache that cascades
// through several backends, ordered fastest/smallest first, promoting hits
// found in a slower tier back up to every faster one.
package multicache

import (
	"context"
	"fmt"

	"github.com/volley-go/volley"
)

// Cache implements a multi-tiered caching strategy. On reads, each tier is
// searched in order and a hit is promoted (written) to every faster tier.
// On writes, every tier receives the entry.
//
// Example use case:
//   - Tier 1: memorycache (fast, small, volatile)
//   - Tier 2: redis (medium speed, larger, shared)
//   - Tier 3: postgresql (slower, largest, durable)
type Cache struct {
	tiers []volley.Cache
}

// New creates a Cache over the given tiers, ordered from fastest/smallest to
// slowest/largest. Returns an error if no tiers are given or any tier is nil.
func New(tiers ...volley.Cache) (*Cache, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("multicache: at least one tier is required")
	}
	for i, tier := range tiers {
		if tier == nil {
			return nil, fmt.Errorf("multicache: tier %d is nil", i)
		}
	}
	return &Cache{tiers: tiers}, nil
}

// Initialize implements volley.Cache by initializing every tier.
func (c *Cache) Initialize(ctx context.Context) error {
	for i, tier := range c.tiers {
		if err := tier.Initialize(ctx); err != nil {
			return fmt.Errorf("multicache: initialize tier %d: %w", i, err)
		}
	}
	return nil
}

// Get implements volley.Cache: tiers are searched in order; a hit is
// promoted to every tier faster than the one it was found in.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	for i, tier := range c.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			c.promote(ctx, key, entry, i)
			return entry, true, nil
		}
	}
	return nil, false, nil
}

// promote writes entry to every tier faster than foundAt. Promotion errors
// are swallowed: the value was already found successfully and a failed
// promotion only costs a future cache miss, not correctness.
func (c *Cache) promote(ctx context.Context, key string, entry *volley.Entry, foundAt int) {
	for i := 0; i < foundAt; i++ {
		_ = c.tiers[i].Put(ctx, key, entry)
	}
}

// Put implements volley.Cache by writing entry to every tier.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	for i, tier := range c.tiers {
		if err := tier.Put(ctx, key, entry); err != nil {
			return fmt.Errorf("multicache: put tier %d: %w", i, err)
		}
	}
	return nil
}

// Invalidate implements volley.Cache across every tier.
func (c *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	for i, tier := range c.tiers {
		if err := tier.Invalidate(ctx, key, fullExpire); err != nil {
			return fmt.Errorf("multicache: invalidate tier %d: %w", i, err)
		}
	}
	return nil
}

// Remove implements volley.Cache across every tier.
func (c *Cache) Remove(ctx context.Context, key string) error {
	for i, tier := range c.tiers {
		if err := tier.Remove(ctx, key); err != nil {
			return fmt.Errorf("multicache: remove tier %d: %w", i, err)
		}
	}
	return nil
}

// Clear implements volley.Cache across every tier.
func (c *Cache) Clear(ctx context.Context) error {
	for i, tier := range c.tiers {
		if err := tier.Clear(ctx); err != nil {
			return fmt.Errorf("multicache: clear tier %d: %w", i, err)
		}
	}
	return nil
}
