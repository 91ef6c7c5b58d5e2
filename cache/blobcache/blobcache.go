// Package blobcache implements volley.Cache over a Go CDK blob.Bucket,
// giving cloud-agnostic storage (S3, GCS, Azure Blob, local filesystem, or
// in-memory) behind a single implementation.
package blobcache

import (
	"context"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/volley-go/volley"
)

// Config holds the configuration for a blob-backed Cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g. "s3://bucket?region=us-west-2").
	// Ignored if Bucket is set.
	BucketURL string
	// KeyPrefix is prepended to every hashed key; defaults to "cache/".
	KeyPrefix string
	// Timeout bounds every blob operation when the caller's context carries
	// no deadline; defaults to 30s.
	Timeout time.Duration
	// Bucket is an optional pre-opened bucket; if set, BucketURL is ignored
	// and the caller retains ownership (Close becomes a no-op).
	Bucket *blob.Bucket
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{KeyPrefix: "cache/", Timeout: 30 * time.Second}
}

// Cache stores gob-encoded entries as blobs.
type Cache struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

func (c *Cache) blobKey(key string) string {
	return c.keyPrefix + volley.HashKey(key)
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// New opens the bucket named by config.BucketURL (or uses config.Bucket, if
// set) and returns a Cache over it. Call Close when done with a cache that
// opened its own bucket.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobcache: either BucketURL or Bucket must be provided")
	}
	def := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}

	if config.Bucket != nil {
		return &Cache{bucket: config.Bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
	}

	bucket, err := blob.OpenBucket(ctx, config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("blobcache: open bucket: %w", err)
	}
	return &Cache{bucket: bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout, ownsBucket: true}, nil
}

// NewWithBucket wraps an already-opened bucket; the caller retains ownership.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) *Cache {
	def := DefaultConfig()
	if keyPrefix == "" {
		keyPrefix = def.KeyPrefix
	}
	if timeout == 0 {
		timeout = def.Timeout
	}
	return &Cache{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout}
}

// Initialize implements volley.Cache; the bucket is ready as soon as New
// returns.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reader, err := c.bucket.NewReader(ctx, c.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobcache: get %q: %w", key, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobcache: read %q: %w", key, err)
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
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	writer, err := c.bucket.NewWriter(ctx, c.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobcache: put %q: open writer: %w", key, err)
	}
	_, writeErr := writer.Write(raw)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobcache: put %q: write: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobcache: put %q: close: %w", key, closeErr)
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
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.bucket.Delete(ctx, c.blobKey(key)); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobcache: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by listing and deleting every blob under
// keyPrefix.
func (c *Cache) Clear(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	iter := c.bucket.List(&blob.ListOptions{Prefix: c.keyPrefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("blobcache: list: %w", err)
		}
		if err := c.bucket.Delete(ctx, obj.Key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("blobcache: delete %q: %w", obj.Key, err)
		}
	}
	return nil
}

// Close closes the underlying bucket, if this Cache opened it.
func (c *Cache) Close() error {
	if !c.ownsBucket {
		return nil
	}
	return c.bucket.Close()
}
