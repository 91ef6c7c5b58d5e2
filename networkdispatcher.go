package volley

import "context"

// networkDispatcher is one worker in the network-dispatch pool of §4.3: it
// takes a request, performs the round trip (retrying per the request's
// RetryPolicy), parses, optionally caches, and delivers.
type networkDispatcher struct {
	network      Network
	cache        Cache
	networkQueue *blockingPriorityQueue
	delivery     ResponseDelivery
	trafficTag   func(tag any)
}

func (d *networkDispatcher) run(ctx context.Context) {
	for {
		req, ok := d.networkQueue.Take()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, req)
	}
}

func (d *networkDispatcher) dispatch(ctx context.Context, req queuedRequest) {
	if req.isCancelled() {
		if m := req.marker(); m != nil {
			m.Add("network-discard-cancelled")
		}
		req.finishOnly("network-discard-cancelled")
		return
	}

	if d.trafficTag != nil {
		d.trafficTag(req.tag())
	}

	if m := req.marker(); m != nil {
		m.Add("network-queue-take")
	}
	req.dispatchNetwork(ctx, d.network, d.cache, d.delivery)
}
