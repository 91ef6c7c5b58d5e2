package prometheus

import (
	"context"
	"time"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/wrapper/metrics"
)

// Metric result constants.
const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// InstrumentedCache wraps a volley.Cache with metrics recording.
type InstrumentedCache struct {
	underlying volley.Cache
	collector  metrics.Collector
	backend    string // backend name: "memory", "redis", "leveldb", etc.
}

// NewInstrumentedCache wraps cache, recording a metric for every operation
// under the given backend label. A nil collector uses metrics.DefaultCollector.
func NewInstrumentedCache(cache volley.Cache, backend string, collector metrics.Collector) *InstrumentedCache {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedCache{underlying: cache, collector: collector, backend: backend}
}

// Initialize implements volley.Cache.
func (c *InstrumentedCache) Initialize(ctx context.Context) error {
	return c.underlying.Initialize(ctx)
}

// Get implements volley.Cache, recording a hit/miss/error result.
func (c *InstrumentedCache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	start := time.Now()
	entry, ok, err := c.underlying.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	c.collector.RecordCacheOperation("get", c.backend, result, duration)

	return entry, ok, err
}

// Put implements volley.Cache.
func (c *InstrumentedCache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	start := time.Now()
	err := c.underlying.Put(ctx, key, entry)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("put", c.backend, result, duration)
	if err == nil && entry != nil {
		c.collector.RecordCacheSize(c.backend, int64(len(entry.Data)))
	}

	return err
}

// Invalidate implements volley.Cache.
func (c *InstrumentedCache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	start := time.Now()
	err := c.underlying.Invalidate(ctx, key, fullExpire)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("invalidate", c.backend, result, duration)

	return err
}

// Remove implements volley.Cache.
func (c *InstrumentedCache) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := c.underlying.Remove(ctx, key)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("remove", c.backend, result, duration)

	return err
}

// Clear implements volley.Cache.
func (c *InstrumentedCache) Clear(ctx context.Context) error {
	start := time.Now()
	err := c.underlying.Clear(ctx)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("clear", c.backend, result, duration)
	if err == nil {
		c.collector.RecordCacheEntries(c.backend, 0)
	}

	return err
}

var _ volley.Cache = (*InstrumentedCache)(nil)
