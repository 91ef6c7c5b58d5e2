package volley

import "log/slog"

// QueueOption configures a RequestQueue at construction time.
// Use the With* functions to create QueueOptions.
type QueueOption func(*RequestQueue)

// WithThreadPoolSize sets the number of network dispatcher goroutines.
// Default: 4.
func WithThreadPoolSize(n int) QueueOption {
	return func(q *RequestQueue) {
		if n > 0 {
			q.threadPoolSize = n
		}
	}
}

// WithTrafficTagger installs a best-effort hook invoked with a request's Tag
// immediately before each network dispatch, mirroring platform traffic-stats
// tagging facilities (§4.3 step 3). A nil tagger (the default) is a no-op.
func WithTrafficTagger(fn func(tag any)) QueueOption {
	return func(q *RequestQueue) {
		q.trafficTagger = fn
	}
}

// WithLogger installs a *slog.Logger for this process; equivalent to
// calling SetLogger directly but expressible alongside other QueueOptions.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *RequestQueue) {
		SetLogger(l)
	}
}
