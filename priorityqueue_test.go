package volley

import "testing"

func newTestRequest(priority Priority, seq int64) *Request[string] {
	r := NewRequest[string]("GET", "http://example.com", func(NetworkResponse) Response[string] {
		return Response[string]{}
	}, func(Response[string]) {})
	r.PriorityValue = priority
	r.setSequence(seq)
	return r
}

func TestPriorityHeapOrdersByPriorityThenSequence(t *testing.T) {
	q := newBlockingPriorityQueue()
	q.Add(newTestRequest(PriorityLow, 1))
	q.Add(newTestRequest(PriorityImmediate, 2))
	q.Add(newTestRequest(PriorityNormal, 3))
	q.Add(newTestRequest(PriorityImmediate, 0))

	first, ok := q.Take()
	if !ok {
		t.Fatal("expected a request")
	}
	if first.priority() != PriorityImmediate || first.sequence() != 0 {
		t.Fatalf("expected immediate/seq0 first, got priority=%v seq=%d", first.priority(), first.sequence())
	}

	second, _ := q.Take()
	if second.priority() != PriorityImmediate || second.sequence() != 2 {
		t.Fatalf("expected immediate/seq2 second, got priority=%v seq=%d", second.priority(), second.sequence())
	}

	third, _ := q.Take()
	if third.priority() != PriorityNormal {
		t.Fatalf("expected normal priority third, got %v", third.priority())
	}

	fourth, _ := q.Take()
	if fourth.priority() != PriorityLow {
		t.Fatalf("expected low priority last, got %v", fourth.priority())
	}
}

func TestBlockingPriorityQueueStopWakesTake(t *testing.T) {
	q := newBlockingPriorityQueue()
	done := make(chan bool)
	go func() {
		_, ok := q.Take()
		done <- ok
	}()
	q.Stop()
	if ok := <-done; ok {
		t.Fatal("expected Take to return ok=false after Stop")
	}
}

func TestBlockingPriorityQueueRemoveIf(t *testing.T) {
	q := newBlockingPriorityQueue()
	keep := newTestRequest(PriorityNormal, 1)
	drop := newTestRequest(PriorityNormal, 2)
	q.Add(keep)
	q.Add(drop)

	q.removeIf(func(r queuedRequest) bool { return r.sequence() == 2 })

	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining request, got %d", q.Len())
	}
	remaining, _ := q.Take()
	if remaining.sequence() != 1 {
		t.Fatalf("expected the kept request to survive, got sequence %d", remaining.sequence())
	}
}
