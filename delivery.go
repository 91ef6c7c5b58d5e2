package volley

import "context"

// deliverable is the type-erased bridge between a generic Request[T]'s
// Response[T] and the non-generic ResponseDelivery it's posted through.
type deliverable interface {
	deliverSuccess()
	deliverFailure(err error)
}

// ResponseDelivery marshals dispatcher-produced responses onto a single
// execution context (typically a UI/event loop goroutine), per §6: it must
// never invoke user callbacks synchronously from the calling (dispatcher)
// goroutine.
type ResponseDelivery interface {
	// PostResponse delivers a final (or error) response, then calls
	// request.finish(tag) on the delivery goroutine.
	PostResponse(req queuedRequest, d deliverable)
	// PostResponseThen delivers an intermediate response, then runs then on
	// the delivery goroutine once the callback returns.
	PostResponseThen(req queuedRequest, d deliverable, then func())
	// PostError is the error-delivery symmetric of PostResponse.
	PostError(req queuedRequest, err error)
}

// deliveryJob is one unit of work queued onto a ChannelDelivery.
type deliveryJob struct {
	req   queuedRequest
	d     deliverable
	err   error
	then  func()
	final bool
}

// ChannelDelivery is the default ResponseDelivery: a buffered channel drained
// by a single goroutine started with Run, so every user callback observes a
// consistent, single-threaded execution context regardless of how many
// dispatcher goroutines are producing responses concurrently.
type ChannelDelivery struct {
	jobs chan deliveryJob
}

// NewChannelDelivery builds a ChannelDelivery with the given channel buffer
// size. Run must be started before any dispatcher posts to it.
func NewChannelDelivery(bufferSize int) *ChannelDelivery {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &ChannelDelivery{jobs: make(chan deliveryJob, bufferSize)}
}

// Run drains queued jobs on the calling goroutine until ctx is cancelled.
// Callers typically run this on the goroutine that owns their UI/event loop.
func (c *ChannelDelivery) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.jobs:
			c.execute(job)
		}
	}
}

func (c *ChannelDelivery) execute(job deliveryJob) {
	if job.req.isCancelled() {
		// Finish regardless of job.final: an intermediate job left
		// unfinished here would never release this request from
		// currentRequests/waitingRequests, blocking coalescing on its
		// cache key for every later request sharing it.
		job.req.finishOnly("delivery-discard-canceled")
		return
	}
	if job.err != nil {
		job.d.deliverFailure(job.err)
	} else {
		job.d.deliverSuccess()
	}
	if job.final {
		job.req.finishOnly("done")
	}
	if job.then != nil {
		job.then()
	}
}

// PostResponse implements ResponseDelivery.
func (c *ChannelDelivery) PostResponse(req queuedRequest, d deliverable) {
	c.jobs <- deliveryJob{req: req, d: d, final: true}
}

// PostResponseThen implements ResponseDelivery.
func (c *ChannelDelivery) PostResponseThen(req queuedRequest, d deliverable, then func()) {
	c.jobs <- deliveryJob{req: req, d: d, then: then}
}

// PostError implements ResponseDelivery.
func (c *ChannelDelivery) PostError(req queuedRequest, err error) {
	c.jobs <- deliveryJob{req: req, err: err, final: true}
}
