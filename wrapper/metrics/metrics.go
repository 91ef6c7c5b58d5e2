// Package metrics defines a generic interface for collecting RequestQueue
// and Cache metrics. Concrete implementations (Prometheus, OpenTelemetry,
// Datadog, ...) live in their own subpackages so the core volley package
// never depends on a specific metrics backend.
package metrics

import "time"

// Collector collects operational metrics for cache backends and the
// network dispatcher. Implementations must be safe for concurrent use.
type Collector interface {
	// RecordCacheOperation records a cache operation.
	//   - operation: "get", "put", "invalidate", "remove", or "clear"
	//   - backend: cache backend name (e.g. "memory", "redis", "leveldb")
	//   - result: operation result (e.g. "hit", "miss", "success", "error")
	RecordCacheOperation(operation, backend, result string, duration time.Duration)

	// RecordCacheSize records the current size of a cache backend in bytes.
	RecordCacheSize(backend string, sizeBytes int64)

	// RecordCacheEntries records the current number of entries in a cache
	// backend.
	RecordCacheEntries(backend string, count int64)

	// RecordNetworkRequest records one network dispatcher round trip.
	//   - cacheStatus: "hit", "miss", "revalidated", or "bypass"
	RecordNetworkRequest(method, cacheStatus string, statusCode int, duration time.Duration)

	// RecordResponseSize records the size of a network response body.
	RecordResponseSize(cacheStatus string, sizeBytes int64)

	// RecordStaleResponse records that a stale cache entry was served
	// because a network refresh failed.
	//   - errorType: e.g. "network", "server_error", "timeout"
	RecordStaleResponse(errorType string)
}

// NoOpCollector implements Collector with no-op operations. It is the
// default collector used when metrics are not configured, giving zero
// overhead to callers who don't need them.
type NoOpCollector struct{}

func (NoOpCollector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
}
func (NoOpCollector) RecordCacheSize(backend string, sizeBytes int64) {}
func (NoOpCollector) RecordCacheEntries(backend string, count int64)  {}
func (NoOpCollector) RecordNetworkRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
}
func (NoOpCollector) RecordResponseSize(cacheStatus string, sizeBytes int64) {}
func (NoOpCollector) RecordStaleResponse(errorType string)                   {}

// DefaultCollector is used when a caller passes a nil Collector.
var DefaultCollector Collector = NoOpCollector{}

var _ Collector = NoOpCollector{}
