package volley

import (
	"sync"
	"time"
)

// RetryPolicy is a stateful, per-request retry decision with backoff. A
// single instance belongs to exactly one Request and is never shared:
// Network consults it on every retry-eligible failure (connection error,
// timeout, eligible 5xx) until it either returns nil (retry) or the
// original error (attempts exhausted).
type RetryPolicy interface {
	// CurrentTimeout returns the timeout to use for the next attempt.
	CurrentTimeout() time.Duration
	// CurrentRetryCount returns how many retries have been consumed so far.
	CurrentRetryCount() int
	// Retry is called after a retry-eligible failure. It mutates internal
	// state (incrementing the retry count and scaling the timeout) and
	// returns nil if another attempt should be made, or lastErr unchanged
	// once attempts are exhausted.
	Retry(lastErr error) error
}

// DefaultRetryPolicy implements the (timeoutMs, maxRetries, backoffMultiplier)
// policy of §4.5: each Retry call increments the retry count and scales
// timeoutMs by (1+backoffMultiplier), failing lastErr through once
// maxRetries is exceeded.
type DefaultRetryPolicy struct {
	mu                sync.Mutex
	timeout           time.Duration
	maxRetries        int
	backoffMultiplier float64
	retryCount        int
}

// NewDefaultRetryPolicy returns the package default: initialTimeout=2500ms,
// maxRetries=1, backoffMultiplier=1.0.
func NewDefaultRetryPolicy() *DefaultRetryPolicy {
	return NewRetryPolicy(2500*time.Millisecond, 1, 1.0)
}

// NewRetryPolicy builds a DefaultRetryPolicy with explicit parameters.
func NewRetryPolicy(initialTimeout time.Duration, maxRetries int, backoffMultiplier float64) *DefaultRetryPolicy {
	return &DefaultRetryPolicy{
		timeout:           initialTimeout,
		maxRetries:        maxRetries,
		backoffMultiplier: backoffMultiplier,
	}
}

// CurrentTimeout returns the timeout for the next attempt.
func (p *DefaultRetryPolicy) CurrentTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

// CurrentRetryCount returns the number of retries consumed.
func (p *DefaultRetryPolicy) CurrentRetryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retryCount
}

// Retry advances the policy's state and decides whether another attempt is
// permitted.
func (p *DefaultRetryPolicy) Retry(lastErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retryCount >= p.maxRetries {
		return lastErr
	}
	p.retryCount++
	p.timeout = time.Duration(float64(p.timeout) * (1 + p.backoffMultiplier))
	return nil
}
