// Package natskv implements volley.Cache over a NATS JetStream Key/Value
// bucket, storing each Entry gob-encoded under a "volley."-prefixed key.
package natskv

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/volley-go/volley"
)

const keyPrefix = "volley."

// Config configures a new bucket-backed Cache.
type Config struct {
	// NATSUrl is the NATS server URL; defaults to nats.DefaultURL if empty.
	NATSUrl string
	// Bucket names the K/V bucket to create or reuse. Required.
	Bucket string
	// Description is an optional description for the bucket.
	Description string
	// BucketTTL lets the bucket itself expire entries server-side. Leave
	// zero to rely solely on Entry.TTL and explicit Remove/Invalidate.
	BucketTTL time.Duration
	// NATSOptions are passed through to nats.Connect.
	NATSOptions []nats.Option
}

// Cache stores gob-encoded entries in a NATS JetStream K/V bucket.
type Cache struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

func cacheKey(key string) string {
	return keyPrefix + volley.HashKey(key)
}

// New connects to NATS, opens a JetStream context, and creates or updates
// the configured K/V bucket. The caller owns the returned Cache's lifetime
// and should call Close when done.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("natskv: Bucket is required")
	}
	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.BucketTTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: create bucket %q: %w", config.Bucket, err)
	}

	return &Cache{kv: kv, nc: nc}, nil
}

// NewWithKeyValue wraps an already-open JetStream K/V bucket. Close is a
// no-op; the caller manages the underlying NATS connection.
func NewWithKeyValue(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Initialize implements volley.Cache; the bucket is ready as soon as New
// returns.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	v, err := c.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(v.Value())
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
	if _, err := c.kv.Put(ctx, cacheKey(key), raw); err != nil {
		return fmt.Errorf("natskv: put %q: %w", key, err)
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
	if err := c.kv.Delete(ctx, cacheKey(key)); err != nil && err != jetstream.ErrKeyNotFound {
		return fmt.Errorf("natskv: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by purging every volley.-prefixed key in the
// bucket.
func (c *Cache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("natskv: list keys: %w", err)
	}
	for key := range lister.Keys() {
		if len(key) < len(keyPrefix) || key[:len(keyPrefix)] != keyPrefix {
			continue
		}
		if err := c.kv.Purge(ctx, key); err != nil {
			return fmt.Errorf("natskv: purge %q: %w", key, err)
		}
	}
	return nil
}

// Close closes the underlying NATS connection if it was created by New; a
// no-op for caches built with NewWithKeyValue.
func (c *Cache) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
