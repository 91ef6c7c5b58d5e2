package volley

import (
	"net/http"
	"testing"
	"time"
)

// Regression test: an intermediate (non-final) delivery job for a request
// that gets cancelled between posting and draining must still finish the
// request, or it is never released from currentRequests/waitingRequests,
// permanently blocking cache-key coalescing for every later request sharing
// that key.
func TestChannelDeliveryFinishesCancelledIntermediateJob(t *testing.T) {
	delivery, cancel := newRunningDelivery(t)
	defer cancel()

	r := NewRequest[string](http.MethodGet, "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) { t.Fatal("Deliver should not run for a cancelled request") })

	q := NewRequestQueue(newFakeCache(), &fakeNetwork{}, delivery)
	r.setQueue(q)
	q.mu.Lock()
	q.currentRequests[r] = struct{}{}
	q.mu.Unlock()

	r.Cancel()
	delivery.PostResponseThen(r, deliverableResponse[string]{resp: Response[string]{}, deliver: r.Deliver}, func() {
		t.Fatal("the refresh-enqueue callback should not run for a cancelled request")
	})

	deadline := time.Now().Add(time.Second)
	for {
		q.mu.Lock()
		_, present := q.currentRequests[r]
		q.mu.Unlock()
		if !present {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the cancelled intermediate job to finish and release the request")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
