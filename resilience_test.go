package volley

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

type stubNetwork struct {
	calls int
	fn    func(calls int) (NetworkResponse, error)
}

func (s *stubNetwork) PerformRequest(ctx context.Context, req *http.Request, policy RetryPolicy) (NetworkResponse, error) {
	s.calls++
	return s.fn(s.calls)
}

func TestResilientNetworkPassthroughWithoutBreaker(t *testing.T) {
	stub := &stubNetwork{fn: func(int) (NetworkResponse, error) {
		return NetworkResponse{StatusCode: 200}, nil
	}}
	n := NewResilientNetwork(stub, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	resp, err := n.PerformRequest(context.Background(), req, NewDefaultRetryPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestResilientNetworkOpensOnRepeatedFailure(t *testing.T) {
	stub := &stubNetwork{fn: func(int) (NetworkResponse, error) {
		return NetworkResponse{}, errors.New("boom")
	}}
	breaker := circuitbreaker.NewBuilder[NetworkResponse]().
		WithFailureThreshold(2).
		WithDelay(0).
		Build()
	n := NewResilientNetwork(stub, breaker)
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	for i := 0; i < 2; i++ {
		if _, err := n.PerformRequest(context.Background(), req, NewDefaultRetryPolicy()); err == nil {
			t.Fatal("expected failure to propagate")
		}
	}
	if breaker.IsOpen() {
		return
	}
	if _, err := n.PerformRequest(context.Background(), req, NewDefaultRetryPolicy()); err == nil {
		t.Fatal("expected breaker to still reject")
	}
}
