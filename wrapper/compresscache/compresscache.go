// Package compresscache wraps a volley.Cache to transparently compress each
// Entry's Data, reducing storage footprint for large cached bodies. Gzip,
// Brotli, and Snappy are supported; a one-byte marker prefixed to the stored
// payload records which algorithm (or none) produced it, so entries written
// under one algorithm remain readable after switching to another.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/volley-go/volley"
)

// Algorithm identifies a supported compression scheme.
type Algorithm int

const (
	// Gzip balances compression ratio and speed.
	Gzip Algorithm = iota
	// Brotli gives the best ratio at the cost of speed.
	Brotli
	// Snappy is the fastest, with a lower compression ratio.
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// uncompressedMarker prefixes data stored without compression, e.g. when a
// compress call failed and the cache fell back to storing the raw bytes.
const uncompressedMarker = 0

// Stats holds running compression statistics for a Cache.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// Cache wraps an inner volley.Cache, compressing Entry.Data with the
// configured algorithm on Put and transparently decompressing on Get.
type Cache struct {
	inner      volley.Cache
	algorithm  Algorithm
	compress   compressFunc
	decompress decompressFunc

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newCache(inner volley.Cache, algorithm Algorithm, compress compressFunc, decompress decompressFunc) (*Cache, error) {
	if inner == nil {
		return nil, fmt.Errorf("compresscache: cache cannot be nil")
	}
	return &Cache{inner: inner, algorithm: algorithm, compress: compress, decompress: decompress}, nil
}

func (c *Cache) decompressWithAlgorithm(data []byte, algorithm Algorithm) ([]byte, error) {
	if algorithm == c.algorithm {
		return c.decompress(data)
	}
	return decompressAny(data, algorithm)
}

// decompressAny lets a Cache configured for one algorithm still read entries
// a differently-configured Cache previously wrote to the same backend.
func decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return gzipDecompress(data)
	case Brotli:
		return brotliDecompress(data)
	case Snappy:
		return snappyDecompress(data)
	default:
		return nil, fmt.Errorf("compresscache: unsupported algorithm %v", algorithm)
	}
}

// Initialize implements volley.Cache.
func (c *Cache) Initialize(ctx context.Context) error { return c.inner.Initialize(ctx) }

// Get implements volley.Cache, decompressing the stored entry's Data before
// returning it.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	entry, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(entry.Data) == 0 {
		return entry, true, nil
	}
	marker := entry.Data[0]
	payload := entry.Data[1:]

	decoded := entry.Clone()
	if marker == uncompressedMarker {
		decoded.Data = payload
		return decoded, true, nil
	}
	data, err := c.decompressWithAlgorithm(payload, Algorithm(marker-1))
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: decompress %q: %w", key, err)
	}
	decoded.Data = data
	return decoded, true, nil
}

// Put implements volley.Cache, compressing entry.Data before delegating to
// the inner cache. A compression failure falls back to storing the data
// uncompressed rather than failing the write.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	toStore := entry.Clone()

	compressed, err := c.compress(entry.Data)
	if err != nil {
		volley.GetLogger().Warn("compression failed, storing uncompressed", "key", key, "algorithm", c.algorithm, "error", err)
		toStore.Data = append([]byte{uncompressedMarker}, entry.Data...)
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(entry.Data)))
		return c.inner.Put(ctx, key, toStore)
	}

	toStore.Data = append([]byte{byte(c.algorithm + 1)}, compressed...)
	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(entry.Data)))
	return c.inner.Put(ctx, key, toStore)
}

// Invalidate implements volley.Cache.
func (c *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	return c.inner.Invalidate(ctx, key, fullExpire)
}

// Remove implements volley.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error { return c.inner.Remove(ctx, key) }

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error { return c.inner.Clear(ctx) }

// Stats returns a snapshot of this Cache's compression statistics.
func (c *Cache) Stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
