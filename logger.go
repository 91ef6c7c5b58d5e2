// Package volley implements a prioritized, cancellable HTTP request pipeline:
// a request queue that coalesces duplicate in-flight cacheable requests,
// dispatched through a cache-triage worker and a pool of network workers
// onto a caller-supplied delivery executor.
package volley

import (
	"log/slog"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// SetLogger sets a custom slog.Logger instance to be used by the volley
// package. If not set, the default slog logger will be used.
func SetLogger(l *slog.Logger) {
	logger = l
}

// GetLogger returns the configured logger or the default slog logger.
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
	})
	return logger
}
