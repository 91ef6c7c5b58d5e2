package volley

import (
	"context"
	"sync"
	"sync/atomic"
)

// RequestQueue is the entry point of the pipeline: callers Add a Request,
// the queue assigns it a sequence number and routes it onto exactly one of
// two priority queues (cache-triage or network-dispatch), coalescing
// duplicate in-flight cacheable requests that share a cache key.
type RequestQueue struct {
	cache    Cache
	network  Network
	delivery ResponseDelivery

	cacheQueue   *blockingPriorityQueue
	networkQueue *blockingPriorityQueue

	sequenceGen atomic.Int64

	mu              sync.Mutex
	currentRequests map[queuedRequest]struct{}
	waitingRequests map[string][]queuedRequest

	threadPoolSize int
	trafficTagger  func(tag any)
	cacheStarted   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRequestQueue builds a RequestQueue over cache, network, and delivery,
// applying any QueueOptions. Start must be called before Add.
func NewRequestQueue(cache Cache, network Network, delivery ResponseDelivery, opts ...QueueOption) *RequestQueue {
	q := &RequestQueue{
		cache:           cache,
		network:         network,
		delivery:        delivery,
		cacheQueue:      newBlockingPriorityQueue(),
		networkQueue:    newBlockingPriorityQueue(),
		currentRequests: make(map[queuedRequest]struct{}),
		waitingRequests: make(map[string][]queuedRequest),
		threadPoolSize:  4,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the cache dispatcher and the network dispatcher pool as
// goroutines bound to ctx. Calling Start twice is a no-op.
func (q *RequestQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.cacheStarted {
		q.mu.Unlock()
		return
	}
	q.cacheStarted = true
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.mu.Unlock()

	cd := &cacheDispatcher{
		cache:        q.cache,
		cacheQueue:   q.cacheQueue,
		networkQueue: q.networkQueue,
		delivery:     q.delivery,
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		cd.run(runCtx)
	}()

	for i := 0; i < q.threadPoolSize; i++ {
		nd := &networkDispatcher{
			network:      q.network,
			cache:        q.cache,
			networkQueue: q.networkQueue,
			delivery:     q.delivery,
			trafficTag:   q.trafficTagger,
		}
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			nd.run(runCtx)
		}()
	}
}

// Stop sets quit on both dispatch queues and cancels the Start context. It
// does not join or drain in-flight requests.
func (q *RequestQueue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.cacheQueue.Stop()
	q.networkQueue.Stop()
}

// Wait blocks until every dispatcher goroutine started by Start has
// returned. Intended for tests and clean-shutdown paths after Stop.
func (q *RequestQueue) Wait() { q.wg.Wait() }

// Add admits req into the pipeline: assigns a sequence number, records it in
// currentRequests, and routes it per §4.1. Requests with ShouldCache=false
// go straight to the network queue; cacheable requests are coalesced by
// cache key through waitingRequests — only the first ("leader") request for
// a given key is enqueued onto the cache queue, subsequent ones wait and are
// released onto the cache queue once the leader finishes.
func (q *RequestQueue) Add(req queuedRequest) {
	req.setQueue(q)
	req.setSequence(q.sequenceGen.Add(1))
	if m := req.marker(); m != nil {
		m.Add("add-to-queue")
	}

	q.mu.Lock()
	q.currentRequests[req] = struct{}{}
	q.mu.Unlock()

	if !req.shouldCache() {
		q.networkQueue.Add(req)
		return
	}

	key := req.cacheKey()
	q.mu.Lock()
	waiters, present := q.waitingRequests[key]
	if !present {
		q.waitingRequests[key] = nil
		q.mu.Unlock()
		q.cacheQueue.Add(req)
		return
	}
	q.waitingRequests[key] = append(waiters, req)
	q.mu.Unlock()
}

// finish is called by a Request at end-of-life (any terminal transition).
// It removes req from currentRequests and, if cacheable, releases any
// coalesced waiters onto the cache queue — the cache has been optimistically
// primed by the leader, so waiters re-triage against it rather than
// re-entering the network path blind.
func (q *RequestQueue) finish(req queuedRequest) {
	q.mu.Lock()
	delete(q.currentRequests, req)

	var released []queuedRequest
	if req.shouldCache() {
		key := req.cacheKey()
		if waiters, ok := q.waitingRequests[key]; ok {
			released = waiters
			delete(q.waitingRequests, key)
		}
	}
	q.mu.Unlock()

	for _, w := range released {
		q.cacheQueue.Add(w)
	}
}

// CancelAll marks every current request whose Tag equals tag as cancelled.
// Cancellation is observed lazily at dispatcher take-time and immediately
// before user callbacks, per §5; CancelAll does not abort in-flight work.
func (q *RequestQueue) CancelAll(tag any) {
	q.CancelAllFunc(func(t any) bool { return t == tag })
}

// CancelAllFunc cancels every current request whose Tag satisfies pred, then
// proactively prunes the matched requests out of both priority queues so a
// cancelled request sitting deep in either queue doesn't wait for its turn
// just to be discarded at take-time.
func (q *RequestQueue) CancelAllFunc(pred func(tag any) bool) {
	q.mu.Lock()
	var matched []queuedRequest
	for r := range q.currentRequests {
		if pred(r.tag()) {
			matched = append(matched, r)
		}
	}
	q.mu.Unlock()
	for _, r := range matched {
		r.cancel()
	}

	isMatched := func(r queuedRequest) bool {
		for _, m := range matched {
			if m == r {
				return true
			}
		}
		return false
	}
	removed := q.cacheQueue.removeIf(isMatched)
	removed = append(removed, q.networkQueue.removeIf(isMatched)...)
	for _, r := range removed {
		r.finishOnly("cancel-discard")
	}
}
