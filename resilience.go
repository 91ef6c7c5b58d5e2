package volley

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// CircuitBreakerBuilder creates a pre-configured circuit breaker builder for
// NetworkResponse results, layered outside a request's own RetryPolicy: once
// a backend is failing consistently across many requests, the breaker opens
// and short-circuits new attempts rather than letting every request burn its
// own retry budget against a dead host.
//
// Default configuration:
//   - Opens on: classified errors or 5xx status codes
//   - Failure threshold: 5 consecutive failures
//   - Success threshold: 2 consecutive successes (in half-open state)
//   - Delay: 60 seconds before entering half-open state
func CircuitBreakerBuilder() circuitbreaker.Builder[NetworkResponse] {
	return circuitbreaker.NewBuilder[NetworkResponse]().
		HandleIf(func(r NetworkResponse, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// ResilientNetwork wraps a Network with a failsafe-go circuit breaker shared
// across every request that flows through it.
type ResilientNetwork struct {
	inner          Network
	circuitBreaker circuitbreaker.CircuitBreaker[NetworkResponse]
}

// NewResilientNetwork builds a ResilientNetwork. A nil breaker disables
// circuit breaking, making this a pass-through to inner.
func NewResilientNetwork(inner Network, breaker circuitbreaker.CircuitBreaker[NetworkResponse]) *ResilientNetwork {
	return &ResilientNetwork{inner: inner, circuitBreaker: breaker}
}

// PerformRequest implements Network, executing inner.PerformRequest through
// the configured circuit breaker.
func (n *ResilientNetwork) PerformRequest(ctx context.Context, req *http.Request, policy RetryPolicy) (NetworkResponse, error) {
	if n.circuitBreaker == nil {
		return n.inner.PerformRequest(ctx, req, policy)
	}
	return failsafe.With[NetworkResponse](n.circuitBreaker).Get(func() (NetworkResponse, error) {
		return n.inner.PerformRequest(ctx, req, policy)
	})
}
