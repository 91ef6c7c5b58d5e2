package compresscache_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/cache/memorycache"
	"github.com/volley-go/volley/cachetest"
	"github.com/volley-go/volley/wrapper/compresscache"
)

func bigEntry() *volley.Entry {
	return &volley.Entry{
		Data:    []byte(strings.Repeat("compress me please ", 200)),
		TTL:     time.Now().Add(time.Hour),
		SoftTTL: time.Now().Add(time.Hour),
	}
}

func TestGzipConformance(t *testing.T) {
	c, err := compresscache.NewGzip(memorycache.New(), compresscache.GzipConfig{})
	require.NoError(t, err)
	cachetest.Cache(t, c)
}

func TestBrotliConformance(t *testing.T) {
	c, err := compresscache.NewBrotli(memorycache.New(), compresscache.BrotliConfig{})
	require.NoError(t, err)
	cachetest.Cache(t, c)
}

func TestSnappyConformance(t *testing.T) {
	c, err := compresscache.NewSnappy(memorycache.New())
	require.NoError(t, err)
	cachetest.Cache(t, c)
}

func TestRoundTripPerAlgorithm(t *testing.T) {
	ctx := context.Background()
	constructors := map[string]func() (*compresscache.Cache, error){
		"gzip": func() (*compresscache.Cache, error) {
			return compresscache.NewGzip(memorycache.New(), compresscache.GzipConfig{})
		},
		"brotli": func() (*compresscache.Cache, error) {
			return compresscache.NewBrotli(memorycache.New(), compresscache.BrotliConfig{})
		},
		"snappy": func() (*compresscache.Cache, error) { return compresscache.NewSnappy(memorycache.New()) },
	}

	for name, newCache := range constructors {
		t.Run(name, func(t *testing.T) {
			c, err := newCache()
			require.NoError(t, err)

			original := bigEntry()
			require.NoError(t, c.Put(ctx, "key", original))

			got, ok, err := c.Get(ctx, "key")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, bytes.Equal(got.Data, original.Data))

			stats := c.Stats()
			assert.Equal(t, int64(1), stats.CompressedCount)
			assert.Greater(t, stats.UncompressedBytes, int64(0))
		})
	}
}

func TestCrossAlgorithmDecompression(t *testing.T) {
	ctx := context.Background()
	inner := memorycache.New()

	gz, err := compresscache.NewGzip(inner, compresscache.GzipConfig{})
	require.NoError(t, err)
	original := bigEntry()
	require.NoError(t, gz.Put(ctx, "shared", original))

	// A Cache configured for a different algorithm, wrapping the same inner
	// store, must still be able to read an entry written under gzip.
	sn, err := compresscache.NewSnappy(inner)
	require.NoError(t, err)

	got, ok, err := sn.Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bytes.Equal(got.Data, original.Data))
}
