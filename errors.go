package volley

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way §7 of the pipeline contract requires:
// Network is expected to emit one of these, and Request.ParseNetworkError
// may refine it further.
type Kind int

const (
	// KindUnknown is the zero value; a *Error should never be constructed
	// with it deliberately.
	KindUnknown Kind = iota
	// KindTimeout indicates the request exceeded its retry policy's timeout.
	KindTimeout
	// KindNoConnection indicates the transport could not reach the server.
	KindNoConnection
	// KindAuth indicates credentials were required, missing, or rejected.
	KindAuth
	// KindServer indicates a 5xx or otherwise malformed server-side failure.
	KindServer
	// KindNetwork is a generic transport failure that isn't one of the above.
	KindNetwork
	// KindParse indicates the response body could not be converted to T.
	KindParse
	// KindCancelled indicates the request was cancelled before completion.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoConnection:
		return "no-connection"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the error type returned on the dispatcher/network path. It wraps
// a cause (possibly nil) and is classified by Kind so callers can
// errors.Is/As against the sentinel Err* values below.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		if e.Cause != nil {
			return fmt.Sprintf("volley: %s: %s: %v", e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("volley: %s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("volley: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("volley: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a sentinel of the same Kind, so that
// errors.Is(err, volley.ErrTimeout) works regardless of Message/Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) && other.Cause == nil && other.Message == "" {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel errors for the kinds in §7. Use errors.Is(err, volley.ErrX).
var (
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNoConnection = &Error{Kind: KindNoConnection}
	ErrAuth         = &Error{Kind: KindAuth}
	ErrServer       = &Error{Kind: KindServer}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrParse        = &Error{Kind: KindParse}
	ErrCancelled    = &Error{Kind: KindCancelled}
)

// NewError builds a classified *Error wrapping cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// wrapUnexpected wraps an unclassified error as a generic KindNetwork
// failure, per §7: "any unexpected exception is logged and wrapped as a
// generic error; the dispatcher must not die on a single request's failure."
func wrapUnexpected(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return NewError(KindNetwork, "unexpected failure", err)
}
