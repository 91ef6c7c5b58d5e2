package volley

import "context"

// cacheDispatcher is the single cache-triage worker of §4.2: it classifies
// every cacheable request as a miss, a hard-expired hit, a soft-expired hit
// (serve stale, then refresh), or a fresh hit, and routes it accordingly.
type cacheDispatcher struct {
	cache        Cache
	cacheQueue   *blockingPriorityQueue
	networkQueue *blockingPriorityQueue
	delivery     ResponseDelivery
}

func (d *cacheDispatcher) run(ctx context.Context) {
	if err := d.cache.Initialize(ctx); err != nil {
		GetLogger().Error("cache initialize failed", "error", err)
	}

	for {
		req, ok := d.cacheQueue.Take()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, req)
	}
}

func (d *cacheDispatcher) dispatch(ctx context.Context, req queuedRequest) {
	if req.isCancelled() {
		if m := req.marker(); m != nil {
			m.Add("cache-discard-canceled")
		}
		req.finishOnly("cache-discard-canceled")
		return
	}

	entry, ok, err := d.cache.Get(ctx, req.cacheKey())
	if err != nil {
		GetLogger().Warn("cache get failed, falling back to network", "key", req.cacheKey(), "error", err)
		ok = false
	}

	if !ok {
		if m := req.marker(); m != nil {
			m.Add("cache-miss")
		}
		d.networkQueue.Add(req)
		return
	}

	if entry.IsExpired() {
		if m := req.marker(); m != nil {
			m.Add("cache-hit-expired")
		}
		req.setCacheEntry(entry)
		d.networkQueue.Add(req)
		return
	}

	if entry.RefreshNeeded() {
		if m := req.marker(); m != nil {
			m.Add("cache-hit-refresh-needed")
		}
		req.setCacheEntry(entry)
		req.deliverFromCache(entry, d.delivery, true, func() {
			d.networkQueue.Add(req)
		})
		return
	}

	if m := req.marker(); m != nil {
		m.Add("cache-hit")
	}
	req.deliverFromCache(entry, d.delivery, false, nil)
}
