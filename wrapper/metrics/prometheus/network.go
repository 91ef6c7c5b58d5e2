package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/wrapper/metrics"
)

// InstrumentedNetwork wraps a volley.Network with metrics recording for
// every dispatched request.
type InstrumentedNetwork struct {
	underlying volley.Network
	collector  metrics.Collector
}

// NewInstrumentedNetwork wraps network, recording metrics for every
// PerformRequest call. A nil collector uses metrics.DefaultCollector.
func NewInstrumentedNetwork(network volley.Network, collector metrics.Collector) *InstrumentedNetwork {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedNetwork{underlying: network, collector: collector}
}

// PerformRequest implements volley.Network.
func (n *InstrumentedNetwork) PerformRequest(ctx context.Context, req *http.Request, policy volley.RetryPolicy) (volley.NetworkResponse, error) {
	start := time.Now()
	resp, err := n.underlying.PerformRequest(ctx, req, policy)
	duration := time.Since(start)

	cacheStatus := "miss"
	if resp.NotModified {
		cacheStatus = "revalidated"
	}

	n.collector.RecordNetworkRequest(req.Method, cacheStatus, resp.StatusCode, duration)
	if err == nil {
		n.collector.RecordResponseSize(cacheStatus, int64(len(resp.Body)))
	}

	return resp, err
}

var _ volley.Network = (*InstrumentedNetwork)(nil)
