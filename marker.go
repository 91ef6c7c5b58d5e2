package volley

import (
	"strings"
	"sync"
	"time"
)

// markerEvent is one named, timed checkpoint in a request's lifecycle.
type markerEvent struct {
	tag     string
	elapsed time.Duration
}

// MarkerLog is a small ordered (tag, elapsed) recorder attached to a
// Request, used to trace the sequence of lifecycle events ("add-to-queue",
// "network-queue-take", "cache-discard-canceled", ...) a request passes
// through. Safe for concurrent use: Add may be called from any dispatcher
// goroutine.
type MarkerLog struct {
	mu     sync.Mutex
	start  time.Time
	events []markerEvent
}

// NewMarkerLog returns a MarkerLog timestamped from now.
func NewMarkerLog() *MarkerLog {
	return &MarkerLog{start: nowFunc()}
}

// Add records tag at the current elapsed time since the log was created.
func (m *MarkerLog) Add(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, markerEvent{tag: tag, elapsed: nowFunc().Sub(m.start)})
}

// Dump renders the recorded events as a single multi-line string, one event
// per line, suitable for a single structured log call.
func (m *MarkerLog) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for _, e := range m.events {
		b.WriteString(e.tag)
		b.WriteString(" (+")
		b.WriteString(e.elapsed.String())
		b.WriteString(")\n")
	}
	return b.String()
}

// Events returns a copy of the recorded (tag, elapsed) pairs in order.
func (m *MarkerLog) Events() []markerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]markerEvent, len(m.events))
	copy(out, m.events)
	return out
}
