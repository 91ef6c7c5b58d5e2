package volley

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// NetworkResponse is the outcome of one HTTP round trip, passed to
// Request.Parse on the network dispatcher's goroutine.
type NetworkResponse struct {
	StatusCode  int
	Body        []byte
	Headers     map[string]string
	NotModified bool
}

// Network performs one HTTP round trip honoring a request's RetryPolicy.
// PerformRequest is synchronous from the caller's point of view: it may
// retry internally, consuming policy's backoff state, and returns a typed
// *Error (see Kind) on terminal failure.
type Network interface {
	PerformRequest(ctx context.Context, req *http.Request, policy RetryPolicy) (NetworkResponse, error)
}

// HTTPNetwork is the default Network, performing requests with a
// configurable http.RoundTripper and classifying failures into the Kind
// taxonomy of §7 so RetryPolicy can be consulted uniformly.
type HTTPNetwork struct {
	Client *http.Client
}

// NewHTTPNetwork builds an HTTPNetwork. A nil client is replaced by a
// zero-value http.Client (http.DefaultTransport, no overall deadline);
// per-attempt timeouts come from the RetryPolicy.
func NewHTTPNetwork(client *http.Client) *HTTPNetwork {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPNetwork{Client: client}
}

// PerformRequest executes req, retrying per policy on connection failures,
// timeouts, and 5xx responses, per §4.5's classification contract.
func (n *HTTPNetwork) PerformRequest(ctx context.Context, req *http.Request, policy RetryPolicy) (NetworkResponse, error) {
	if policy == nil {
		policy = NewDefaultRetryPolicy()
	}

	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return NetworkResponse{}, NewError(KindNetwork, "read request body", err)
		}
		_ = req.Body.Close()
		bodyBytes = b
	}

	for {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.CurrentTimeout())
		attemptReq := req.Clone(attemptCtx)
		if bodyBytes != nil {
			attemptReq.Body = newBodyReadCloser(bodyBytes)
			attemptReq.ContentLength = int64(len(bodyBytes))
		}

		nr, classified := n.attempt(attemptReq)
		cancel()

		if classified == nil {
			return nr, nil
		}
		if !retryEligible(classified) {
			return NetworkResponse{}, classified
		}
		if err := policy.Retry(classified); err != nil {
			return NetworkResponse{}, err
		}
		if ctx.Err() != nil {
			return NetworkResponse{}, NewError(KindTimeout, "context done during retry", ctx.Err())
		}
	}
}

func (n *HTTPNetwork) attempt(req *http.Request) (NetworkResponse, *Error) {
	httpResp, err := n.Client.Do(req)
	if err != nil {
		return NetworkResponse{}, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return NetworkResponse{}, NewError(KindNetwork, "read response body", err)
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	switch {
	case httpResp.StatusCode == http.StatusNotModified:
		return NetworkResponse{StatusCode: httpResp.StatusCode, Headers: headers, NotModified: true}, nil
	case httpResp.StatusCode == http.StatusUnauthorized:
		return NetworkResponse{}, NewError(KindAuth, "authentication required", nil)
	case httpResp.StatusCode >= 500:
		return NetworkResponse{}, &Error{Kind: KindServer, StatusCode: httpResp.StatusCode, Message: fmt.Sprintf("server error %d", httpResp.StatusCode)}
	case httpResp.StatusCode >= 400:
		return NetworkResponse{}, &Error{Kind: KindNetwork, StatusCode: httpResp.StatusCode, Message: fmt.Sprintf("client error %d", httpResp.StatusCode)}
	default:
		return NetworkResponse{StatusCode: httpResp.StatusCode, Body: body, Headers: headers}, nil
	}
}

// retryEligible mirrors §4.5: connection failure, timeout, eligible 5xx,
// and auth (a synchronous re-auth opportunity this default Network does not
// implement, so it is treated as terminal here).
func retryEligible(err *Error) bool {
	switch err.Kind {
	case KindTimeout, KindNoConnection, KindServer:
		return true
	default:
		return false
	}
}

func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, "request timed out", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewError(KindNoConnection, "connection failed", err)
	}
	return NewError(KindNetwork, "transport error", err)
}

// bodyReadCloser adapts a byte slice to io.ReadCloser for repeated request
// bodies across retry attempts.
type bodyReadCloser struct {
	*bytesReader
}

func newBodyReadCloser(b []byte) *bodyReadCloser {
	return &bodyReadCloser{bytesReader: newBytesReader(b)}
}

func (b *bodyReadCloser) Close() error { return nil }

// bytesReader is a minimal reader over a byte slice; each retry attempt gets
// a fresh one so it re-reads the same body from the start.
type bytesReader struct {
	data []byte
	pos  int
}

func newBytesReader(b []byte) *bytesReader { return &bytesReader{data: b} }

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
