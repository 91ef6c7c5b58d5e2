package volley

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// Priority orders requests within a single RequestQueue. Higher values are
// served first; requests of equal priority are served FIFO by sequence.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityImmediate
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityImmediate:
		return "IMMEDIATE"
	default:
		return "UNKNOWN"
	}
}

// ParseFunc converts a NetworkResponse — either a live network round trip or
// one synthesized from a stored Entry — into a Response[T]. It must be
// pure, deterministic, and must not block on external resources: it runs on
// a dispatcher goroutine, never the delivery executor.
type ParseFunc[T any] func(NetworkResponse) Response[T]

// ParseErrorFunc refines a transport-level error into the error ultimately
// delivered to the caller. A nil ParseErrorFunc delivers err unchanged.
type ParseErrorFunc func(err error) error

// queuedRequest is the type-erased view of a Request[T] that RequestQueue
// and the two dispatchers operate on, so the queue itself need not be
// generic. Every exported method on Request[T] has a lowercase counterpart
// here used only by package-internal plumbing.
type queuedRequest interface {
	cacheKey() string
	shouldCache() bool
	priority() Priority
	sequence() int64
	setSequence(int64)
	isCancelled() bool
	cancel()
	cacheEntry() *Entry
	setCacheEntry(*Entry)
	hasResponseDelivered() bool
	tag() any
	marker() *MarkerLog
	setQueue(*RequestQueue)

	// deliverFromCache runs on the cache dispatcher: e resolves to a Response via
	// Parse, delivered as intermediate or final depending on intermediate.
	deliverFromCache(e *Entry, delivery ResponseDelivery, intermediate bool, onAfterIntermediate func())

	// dispatchNetwork runs on a network dispatcher goroutine; it builds the
	// outgoing *http.Request, performs it via network, parses, optionally
	// caches, and delivers — the full state machine of §4.3.
	dispatchNetwork(ctx context.Context, network Network, cache Cache, delivery ResponseDelivery)

	// finishOnly records the terminal marker tag and notifies the queue,
	// without attempting any parse/deliver work (used for cancel-discard paths).
	finishOnly(tag string)
}

// less reports whether a sorts before b under the ordering key of §3:
// priority desc, sequence asc.
func less(a, b queuedRequest) bool {
	if a.priority() != b.priority() {
		return a.priority() > b.priority()
	}
	return a.sequence() < b.sequence()
}

// Request describes one logical HTTP operation, generic over its parsed
// result type T. Method/URL/Headers/Body/Parse/Deliver are immutable once
// passed to RequestQueue.Add; Tag, RetryPolicyValue, ShouldCacheValue, and
// PriorityValue must be set before that call. Sequence, Cancelled, and
// ResponseDelivered are mutated during the request's lifecycle.
type Request[T any] struct {
	// Method is one of GET, POST, PUT, DELETE, HEAD, OPTIONS, TRACE, PATCH.
	Method string
	// URL is the target of the request.
	URL string
	// Headers, if set, produces additional request headers at dispatch time.
	Headers func(ctx context.Context) (http.Header, error)
	// Body, if set, produces the request body at dispatch time.
	Body func(ctx context.Context) ([]byte, error)

	// Parse converts a NetworkResponse into a Response[T]. Required.
	Parse ParseFunc[T]
	// ParseError refines a transport error before delivery. Optional.
	ParseError ParseErrorFunc
	// Deliver is invoked on the delivery executor with the final or
	// intermediate result. Required.
	Deliver func(Response[T])
	// CacheKeyFn overrides the default cache key (the URL). Optional.
	CacheKeyFn func() string

	// Tag is an opaque identity token consulted by RequestQueue.CancelAll.
	Tag any
	// RetryPolicyValue governs backoff/retry for this request. One instance
	// per request; never shared.
	RetryPolicyValue RetryPolicy
	// ShouldCacheValue disables the whole cache path when false.
	ShouldCacheValue bool
	// PriorityValue is one of PriorityLow..PriorityImmediate.
	PriorityValue Priority

	mu                sync.Mutex
	seq               int64
	cancelled         atomic.Bool
	responseDelivered bool
	entry             *Entry
	queue             *RequestQueue
	log               *MarkerLog
}

// NewRequest builds a Request with the given parse/deliver callbacks and
// sane defaults: ShouldCacheValue=true, PriorityValue=PriorityNormal,
// RetryPolicyValue=NewDefaultRetryPolicy(). Method defaults to GET.
func NewRequest[T any](method, url string, parse ParseFunc[T], deliver func(Response[T])) *Request[T] {
	if method == "" {
		method = http.MethodGet
	}
	return &Request[T]{
		Method:           method,
		URL:              url,
		Parse:            parse,
		Deliver:          deliver,
		ShouldCacheValue: true,
		PriorityValue:    PriorityNormal,
		RetryPolicyValue: NewDefaultRetryPolicy(),
		log:              NewMarkerLog(),
	}
}

// CacheKey returns the key used to coalesce and look up this request in
// Cache. The default is the URL.
func (r *Request[T]) CacheKey() string {
	if r.CacheKeyFn != nil {
		return r.CacheKeyFn()
	}
	return r.URL
}

// GetPriority returns the request's configured priority.
func (r *Request[T]) GetPriority() Priority { return r.PriorityValue }

// GetSequence returns the sequence number assigned at admission (0 before
// admission).
func (r *Request[T]) GetSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// IsCancelled reports whether Cancel has been called. Safe for concurrent use.
func (r *Request[T]) IsCancelled() bool { return r.cancelled.Load() }

// Cancel idempotently marks the request cancelled. Dispatchers observe this
// at take-time and immediately before invoking any user callback; in-flight
// transport work is not forcibly aborted.
func (r *Request[T]) Cancel() { r.cancelled.Store(true) }

// HasResponseDelivered reports whether a non-intermediate final delivery has
// already occurred for this request.
func (r *Request[T]) HasResponseDelivered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responseDelivered
}

// CacheEntry returns the Entry attached for conditional revalidation, if any.
func (r *Request[T]) CacheEntry() *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry
}

// Marker returns this request's event-marker log.
func (r *Request[T]) Marker() *MarkerLog { return r.log }

// Finish notifies the owning RequestQueue that this request has reached a
// terminal state, recording tag on its MarkerLog first (§4.4).
func (r *Request[T]) Finish(tag string) { r.finishOnly(tag) }

// --- queuedRequest ---

func (r *Request[T]) cacheKey() string           { return r.CacheKey() }
func (r *Request[T]) shouldCache() bool          { return r.ShouldCacheValue }
func (r *Request[T]) priority() Priority         { return r.PriorityValue }
func (r *Request[T]) sequence() int64            { return r.GetSequence() }
func (r *Request[T]) isCancelled() bool          { return r.IsCancelled() }
func (r *Request[T]) cancel()                    { r.Cancel() }
func (r *Request[T]) cacheEntry() *Entry         { return r.CacheEntry() }
func (r *Request[T]) hasResponseDelivered() bool { return r.HasResponseDelivered() }
func (r *Request[T]) tag() any                   { return r.Tag }
func (r *Request[T]) marker() *MarkerLog         { return r.log }

func (r *Request[T]) setSequence(seq int64) {
	r.mu.Lock()
	r.seq = seq
	r.mu.Unlock()
}

func (r *Request[T]) setCacheEntry(e *Entry) {
	r.mu.Lock()
	r.entry = e
	r.mu.Unlock()
}

func (r *Request[T]) setQueue(q *RequestQueue) {
	r.mu.Lock()
	r.queue = q
	r.mu.Unlock()
}

func (r *Request[T]) markDelivered() {
	r.mu.Lock()
	r.responseDelivered = true
	r.mu.Unlock()
}

func (r *Request[T]) finishOnly(tag string) {
	r.mu.Lock()
	log := r.log
	if log != nil {
		log.Add(tag)
	}
	q := r.queue
	r.mu.Unlock()
	if log != nil {
		GetLogger().Debug("request finished", "url", r.URL, "tag", tag, "markers", log.Dump())
	}
	if q != nil {
		q.finish(r)
	}
}

func (r *Request[T]) deliverFromCache(e *Entry, delivery ResponseDelivery, intermediate bool, onAfterIntermediate func()) {
	if r.isCancelled() {
		r.finishOnly("cache-discard-canceled")
		return
	}
	nr := NetworkResponse{
		StatusCode: http.StatusOK,
		Body:       e.Data,
		Headers:    e.ResponseHeaders,
	}
	resp := r.Parse(nr)
	resp.Intermediate = intermediate
	if resp.CacheEntry == nil {
		resp.CacheEntry = e
	}
	if resp.IsError() {
		delivery.PostError(r, resp.Err)
		return
	}
	if intermediate {
		delivery.PostResponseThen(r, deliverableResponse[T]{resp: resp, deliver: r.Deliver}, onAfterIntermediate)
		return
	}
	r.markDelivered()
	delivery.PostResponse(r, deliverableResponse[T]{resp: resp, deliver: r.Deliver})
}

func (r *Request[T]) dispatchNetwork(ctx context.Context, network Network, cache Cache, delivery ResponseDelivery) {
	httpReq, err := r.buildHTTPRequest(ctx)
	if err != nil {
		delivery.PostError(r, wrapUnexpected(err))
		return
	}

	nr, err := network.PerformRequest(ctx, httpReq, r.RetryPolicyValue)
	if err != nil {
		delivered := r.parseError(err)
		delivery.PostError(r, delivered)
		return
	}

	if nr.NotModified && r.HasResponseDelivered() {
		r.finishOnly("not-modified")
		return
	}

	resp := r.Parse(nr)
	if resp.IsError() {
		delivery.PostError(r, r.parseError(resp.Err))
		return
	}

	if r.ShouldCacheValue && resp.CacheEntry != nil && cache != nil {
		if prev := r.CacheEntry(); prev != nil && nr.NotModified {
			merged := mergeEntryMetadata(prev, resp.CacheEntry)
			resp.CacheEntry = merged
		}
		if err := cache.Put(ctx, r.CacheKey(), resp.CacheEntry); err != nil {
			GetLogger().Warn("failed to write cache entry", "key", r.CacheKey(), "error", err)
		}
	}

	r.markDelivered()
	delivery.PostResponse(r, deliverableResponse[T]{resp: resp, deliver: r.Deliver})
}

func (r *Request[T]) parseError(err error) error {
	if r.ParseError != nil {
		return r.ParseError(err)
	}
	return err
}

func (r *Request[T]) buildHTTPRequest(ctx context.Context) (*http.Request, error) {
	var bodyBytes []byte
	if r.Body != nil {
		b, err := r.Body(ctx)
		if err != nil {
			return nil, err
		}
		bodyBytes = b
	}
	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = newBodyReadCloser(bodyBytes)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	if r.Headers != nil {
		h, err := r.Headers(ctx)
		if err != nil {
			return nil, err
		}
		for k, vs := range h {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
	}
	if e := r.CacheEntry(); e != nil {
		if e.ETag != "" {
			httpReq.Header.Set("If-None-Match", e.ETag)
		}
		if !e.ServerDate.IsZero() {
			httpReq.Header.Set("If-Modified-Since", e.ServerDate.UTC().Format(http.TimeFormat))
		}
	}
	return httpReq, nil
}

// Response is the outcome of parsing a NetworkResponse (or cache Entry) for
// a Request[T]: either a successful result (with an optional Entry to
// persist) or an error. Intermediate marks a stale-cache value delivered
// ahead of a refresh per §4.2.
type Response[T any] struct {
	Result       T
	CacheEntry   *Entry
	Err          error
	Intermediate bool
}

// SuccessResponse builds a successful, non-intermediate Response.
func SuccessResponse[T any](result T, entry *Entry) Response[T] {
	return Response[T]{Result: result, CacheEntry: entry}
}

// ErrorResponse builds a failed Response.
func ErrorResponse[T any](err error) Response[T] {
	return Response[T]{Err: err}
}

// IsError reports whether this Response carries a terminal error.
func (r Response[T]) IsError() bool { return r.Err != nil }

// deliverableResponse adapts a typed Response[T] + its Deliver callback to
// the untyped deliverable interface ResponseDelivery operates on.
type deliverableResponse[T any] struct {
	resp    Response[T]
	deliver func(Response[T])
}

func (d deliverableResponse[T]) deliverSuccess() { d.deliver(d.resp) }

func (d deliverableResponse[T]) deliverFailure(err error) {
	d.deliver(Response[T]{Err: err, Intermediate: d.resp.Intermediate})
}
