package volley

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"
)

func newRunningDelivery(t *testing.T) (*ChannelDelivery, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d := NewChannelDelivery(8)
	go d.Run(ctx)
	return d, cancel
}

func TestNewRequestDefaults(t *testing.T) {
	r := NewRequest[string]("", "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})

	if r.Method != http.MethodGet {
		t.Fatalf("expected default method GET, got %q", r.Method)
	}
	if !r.ShouldCacheValue {
		t.Fatal("expected ShouldCacheValue to default true")
	}
	if r.PriorityValue != PriorityNormal {
		t.Fatalf("expected default priority Normal, got %v", r.PriorityValue)
	}
	if r.RetryPolicyValue == nil {
		t.Fatal("expected a default RetryPolicyValue")
	}
	if r.CacheKey() != "http://example.com" {
		t.Fatalf("expected cache key to default to URL, got %q", r.CacheKey())
	}
}

func TestRequestCacheKeyOverride(t *testing.T) {
	r := NewRequest[string](http.MethodGet, "http://example.com/a", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	r.CacheKeyFn = func() string { return "custom-key" }

	if r.CacheKey() != "custom-key" {
		t.Fatalf("expected CacheKeyFn override to take effect, got %q", r.CacheKey())
	}
}

func TestRequestCancelIsIdempotentAndObservable(t *testing.T) {
	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})

	if r.IsCancelled() {
		t.Fatal("expected a fresh request to not be cancelled")
	}
	r.Cancel()
	r.Cancel()
	if !r.IsCancelled() {
		t.Fatal("expected IsCancelled to be true after Cancel")
	}
}

func TestRequestBuildHTTPRequestSetsConditionalHeaders(t *testing.T) {
	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})

	now := time.Now().UTC().Truncate(time.Second)
	r.setCacheEntry(&Entry{ETag: `"abc"`, ServerDate: now})
	r.Headers = func(context.Context) (http.Header, error) {
		h := http.Header{}
		h.Set("X-Custom", "1")
		return h, nil
	}

	httpReq, err := r.buildHTTPRequest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpReq.Header.Get("If-None-Match") != `"abc"` {
		t.Fatalf("expected If-None-Match set from cached ETag, got %q", httpReq.Header.Get("If-None-Match"))
	}
	if httpReq.Header.Get("If-Modified-Since") == "" {
		t.Fatal("expected If-Modified-Since set from cached ServerDate")
	}
	if httpReq.Header.Get("X-Custom") != "1" {
		t.Fatal("expected custom header from Headers func to be applied")
	}
}

func TestRequestDeliverFromCacheDiscardsWhenCancelled(t *testing.T) {
	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{Result: "x"}
	}, func(Response[string]) { t.Fatal("Deliver should not run for a cancelled request") })
	r.Cancel()

	delivery, cancel := newRunningDelivery(t)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.deliverFromCache(&Entry{Data: []byte("cached")}, delivery, false, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverFromCache did not return")
	}
}

func TestRequestDeliverFromCacheDeliversFinalResult(t *testing.T) {
	delivered := make(chan Response[string], 1)
	r := NewRequest[string](http.MethodGet, "http://example.com", func(nr NetworkResponse) Response[string] {
		return Response[string]{Result: string(nr.Body)}
	}, func(resp Response[string]) { delivered <- resp })

	delivery, cancel := newRunningDelivery(t)
	defer cancel()

	r.deliverFromCache(&Entry{Data: []byte("cached-body")}, delivery, false, nil)

	select {
	case resp := <-delivered:
		if resp.Result != "cached-body" {
			t.Fatalf("expected result 'cached-body', got %q", resp.Result)
		}
		if resp.CacheEntry == nil {
			t.Fatal("expected CacheEntry to be populated from the served Entry")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a delivered response")
	}
	if !r.HasResponseDelivered() {
		t.Fatal("expected HasResponseDelivered to be true after a final delivery")
	}
}

func TestRequestFinishLogsMarkerDump(t *testing.T) {
	var buf bytes.Buffer
	prevLogger := logger
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer func() { logger = prevLogger }()

	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})

	r.finishOnly("done")

	if !bytes.Contains(buf.Bytes(), []byte("request finished")) {
		t.Fatalf("expected the marker dump to be logged, got %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("done")) {
		t.Fatalf("expected the terminal tag in the logged output, got %q", buf.String())
	}
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*Entry)}
}

func (c *fakeCache) Initialize(ctx context.Context) error { return nil }

func (c *fakeCache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return e, true, nil
}

func (c *fakeCache) Put(ctx context.Context, key string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	return nil
}

func (c *fakeCache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	return nil
}

type fakeNetwork struct {
	resp NetworkResponse
	err  error
}

func (f *fakeNetwork) PerformRequest(ctx context.Context, req *http.Request, policy RetryPolicy) (NetworkResponse, error) {
	return f.resp, f.err
}

func TestRequestDispatchNetworkCachesSuccessfulResponse(t *testing.T) {
	cache := newFakeCache()
	net := &fakeNetwork{resp: NetworkResponse{StatusCode: http.StatusOK, Body: []byte("fresh")}}

	delivered := make(chan Response[string], 1)
	r := NewRequest[string](http.MethodGet, "http://example.com/item", func(nr NetworkResponse) Response[string] {
		return Response[string]{Result: string(nr.Body), CacheEntry: &Entry{Data: nr.Body}}
	}, func(resp Response[string]) { delivered <- resp })

	delivery, cancel := newRunningDelivery(t)
	defer cancel()

	r.dispatchNetwork(context.Background(), net, cache, delivery)

	select {
	case resp := <-delivered:
		if resp.Result != "fresh" {
			t.Fatalf("expected 'fresh', got %q", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a delivered response")
	}

	entry, ok, err := cache.Get(context.Background(), "http://example.com/item")
	if err != nil || !ok {
		t.Fatalf("expected the fresh response to be cached, ok=%v err=%v", ok, err)
	}
	if string(entry.Data) != "fresh" {
		t.Fatalf("expected cached data 'fresh', got %q", entry.Data)
	}
}

func TestRequestDispatchNetworkDeliversErrorOnTransportFailure(t *testing.T) {
	cache := newFakeCache()
	wantErr := NewError(KindNoConnection, "boom", errors.New("dial failed"))
	net := &fakeNetwork{err: wantErr}

	delivered := make(chan Response[string], 1)
	r := NewRequest[string](http.MethodGet, "http://example.com/item", func(nr NetworkResponse) Response[string] {
		return Response[string]{Result: string(nr.Body)}
	}, func(resp Response[string]) { delivered <- resp })

	delivery, cancel := newRunningDelivery(t)
	defer cancel()

	r.dispatchNetwork(context.Background(), net, cache, delivery)

	select {
	case resp := <-delivered:
		if !resp.IsError() {
			t.Fatal("expected an error response")
		}
		var verr *Error
		if !errors.As(resp.Err, &verr) || verr.Kind != KindNoConnection {
			t.Fatalf("expected KindNoConnection, got %v", resp.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a delivered error response")
	}
}
