package prometheus

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/volley-go/volley"
)

type fakeNetwork struct {
	resp volley.NetworkResponse
	err  error
}

func (f *fakeNetwork) PerformRequest(ctx context.Context, req *http.Request, policy volley.RetryPolicy) (volley.NetworkResponse, error) {
	return f.resp, f.err
}

func TestInstrumentedNetwork(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollectorWithRegistry(registry)

	inner := &fakeNetwork{resp: volley.NetworkResponse{StatusCode: 200, Body: []byte("hello")}}
	network := NewInstrumentedNetwork(inner, collector)

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	if _, err := network.PerformRequest(context.Background(), req, nil); err != nil {
		t.Fatalf("perform request: %v", err)
	}

	expected := `
		# HELP volley_network_requests_total Total number of network dispatcher requests
		# TYPE volley_network_requests_total counter
		volley_network_requests_total{cache_status="miss",method="GET",status_code="200"} 1
	`
	if err := testutil.CollectAndCompare(collector.netRequests, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestInstrumentedNetworkRevalidated(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollectorWithRegistry(registry)

	inner := &fakeNetwork{resp: volley.NetworkResponse{StatusCode: http.StatusNotModified, NotModified: true}}
	network := NewInstrumentedNetwork(inner, collector)

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	if _, err := network.PerformRequest(context.Background(), req, nil); err != nil {
		t.Fatalf("perform request: %v", err)
	}

	expected := `
		# HELP volley_network_requests_total Total number of network dispatcher requests
		# TYPE volley_network_requests_total counter
		volley_network_requests_total{cache_status="revalidated",method="GET",status_code="304"} 1
	`
	if err := testutil.CollectAndCompare(collector.netRequests, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}
