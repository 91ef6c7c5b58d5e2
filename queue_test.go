package volley

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRequestQueueAddAssignsSequenceAndRoutesNonCacheable(t *testing.T) {
	q := NewRequestQueue(newFakeCache(), &fakeNetwork{}, nil)
	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	r.ShouldCacheValue = false

	q.Add(r)

	if r.GetSequence() == 0 {
		t.Fatal("expected Add to assign a non-zero sequence number")
	}
	if q.networkQueue.Len() != 1 {
		t.Fatalf("expected the non-cacheable request on the network queue, got len %d", q.networkQueue.Len())
	}
	if q.cacheQueue.Len() != 0 {
		t.Fatalf("expected nothing on the cache queue, got len %d", q.cacheQueue.Len())
	}
}

func TestRequestQueueCoalescesDuplicateCacheKeys(t *testing.T) {
	q := NewRequestQueue(newFakeCache(), &fakeNetwork{}, nil)

	leader := NewRequest[string](http.MethodGet, "http://example.com/shared", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	follower := NewRequest[string](http.MethodGet, "http://example.com/shared", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})

	q.Add(leader)
	if q.cacheQueue.Len() != 1 {
		t.Fatalf("expected the leader on the cache queue, got len %d", q.cacheQueue.Len())
	}

	q.Add(follower)
	if q.cacheQueue.Len() != 1 {
		t.Fatalf("expected the follower to be coalesced, not enqueued; cache queue len %d", q.cacheQueue.Len())
	}

	taken, ok := q.cacheQueue.Take()
	if !ok || taken != queuedRequest(leader) {
		t.Fatal("expected to take the leader back off the cache queue")
	}

	q.finish(leader)

	if q.cacheQueue.Len() != 1 {
		t.Fatalf("expected the follower released onto the cache queue after finish, got len %d", q.cacheQueue.Len())
	}
	released, ok := q.cacheQueue.Take()
	if !ok || released != queuedRequest(follower) {
		t.Fatal("expected the follower to be the released request")
	}
}

func TestRequestQueueCancelAllMatchesByTag(t *testing.T) {
	q := NewRequestQueue(newFakeCache(), &fakeNetwork{}, nil)

	a := NewRequest[string](http.MethodGet, "http://example.com/a", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	a.Tag = "group-a"
	a.ShouldCacheValue = false

	b := NewRequest[string](http.MethodGet, "http://example.com/b", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	b.Tag = "group-b"
	b.ShouldCacheValue = false

	q.Add(a)
	q.Add(b)

	q.CancelAll("group-a")

	if !a.IsCancelled() {
		t.Fatal("expected request tagged group-a to be cancelled")
	}
	if b.IsCancelled() {
		t.Fatal("expected request tagged group-b to remain uncancelled")
	}
}

func TestRequestQueueEndToEndDeliversNetworkResponse(t *testing.T) {
	cache := newFakeCache()
	net := &fakeNetwork{resp: NetworkResponse{StatusCode: http.StatusOK, Body: []byte("live")}}
	delivery := NewChannelDelivery(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go delivery.Run(ctx)

	q := NewRequestQueue(cache, net, delivery, WithThreadPoolSize(1))
	q.Start(ctx)
	defer q.Stop()

	delivered := make(chan Response[string], 1)
	r := NewRequest[string](http.MethodGet, "http://example.com/live", func(nr NetworkResponse) Response[string] {
		return Response[string]{Result: string(nr.Body), CacheEntry: &Entry{Data: nr.Body}}
	}, func(resp Response[string]) { delivered <- resp })

	q.Add(r)

	select {
	case resp := <-delivered:
		if resp.Result != "live" {
			t.Fatalf("expected result 'live', got %q", resp.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivered response")
	}
}
