package prometheus

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/cache/memorycache"
)

func TestInstrumentedCache(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	collector := NewCollectorWithRegistry(registry)

	cache := NewInstrumentedCache(memorycache.New(), "memory", collector)

	if err := cache.Put(ctx, "key1", &volley.Entry{Data: []byte("value1")}); err != nil {
		t.Fatalf("put: %v", err)
	}

	entry, ok, err := cache.Get(ctx, "key1")
	if err != nil || !ok || string(entry.Data) != "value1" {
		t.Fatalf("get: entry=%v ok=%v err=%v", entry, ok, err)
	}

	if _, ok, err := cache.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss for missing key: ok=%v err=%v", ok, err)
	}

	if err := cache.Remove(ctx, "key1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	expected := `
		# HELP volley_cache_requests_total Total number of cache operations
		# TYPE volley_cache_requests_total counter
		volley_cache_requests_total{cache_backend="memory",operation="get",result="hit"} 1
		volley_cache_requests_total{cache_backend="memory",operation="get",result="miss"} 1
		volley_cache_requests_total{cache_backend="memory",operation="put",result="success"} 1
		volley_cache_requests_total{cache_backend="memory",operation="remove",result="success"} 1
	`
	if err := testutil.CollectAndCompare(collector.cacheRequests, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestInstrumentedCacheNilCollector(t *testing.T) {
	ctx := context.Background()
	cache := NewInstrumentedCache(memorycache.New(), "memory", nil)

	if err := cache.Put(ctx, "key1", &volley.Entry{Data: []byte("value1")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := cache.Get(ctx, "key1"); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
}
