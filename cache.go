package volley

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"
)

// Entry is a cached response: raw bytes plus the metadata needed to decide
// freshness and to revalidate conditionally. ServerDate, TTL (hard) and
// SoftTTL are all absolute timestamps, not durations — callers compute them
// once at write time.
type Entry struct {
	Data            []byte
	ETag            string
	ServerDate      time.Time
	TTL             time.Time
	SoftTTL         time.Time
	ResponseHeaders map[string]string
}

// IsExpired reports whether the entry is past its hard TTL and must be
// refetched rather than served, even provisionally.
func (e *Entry) IsExpired() bool {
	if e == nil || e.TTL.IsZero() {
		return true
	}
	return !nowFunc().Before(e.TTL)
}

// RefreshNeeded reports whether the entry is past its soft TTL: still usable
// as an intermediate value, but a background revalidation should be started.
func (e *Entry) RefreshNeeded() bool {
	if e == nil || e.SoftTTL.IsZero() {
		return true
	}
	return !nowFunc().Before(e.SoftTTL)
}

// Clone returns a deep copy safe to hand to a cache backend or a caller
// without aliasing this entry's slices/maps.
func (e *Entry) Clone() *Entry {
	return e.clone()
}

// clone returns a deep copy safe to hand to a cache backend or a caller
// without aliasing this entry's slices/maps.
func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Data != nil {
		c.Data = append([]byte(nil), e.Data...)
	}
	if e.ResponseHeaders != nil {
		c.ResponseHeaders = make(map[string]string, len(e.ResponseHeaders))
		for k, v := range e.ResponseHeaders {
			c.ResponseHeaders[k] = v
		}
	}
	return &c
}

// entryGob is the on-the-wire shape gob-encoded cache backends persist;
// kept distinct from Entry so adding unexported fields to Entry never
// breaks previously-written cache data.
type entryGob struct {
	Data            []byte
	ETag            string
	ServerDate      time.Time
	TTL             time.Time
	SoftTTL         time.Time
	ResponseHeaders map[string]string
}

// EncodeEntry serializes e for storage in a byte-oriented cache backend.
func EncodeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	g := entryGob{
		Data:            e.Data,
		ETag:            e.ETag,
		ServerDate:      e.ServerDate,
		TTL:             e.TTL,
		SoftTTL:         e.SoftTTL,
		ResponseHeaders: e.ResponseHeaders,
	}
	if err := gob.NewEncoder(&buf).Encode(&g); err != nil {
		return nil, NewError(KindParse, "encode cache entry", err)
	}
	return buf.Bytes(), nil
}

// DecodeEntry deserializes bytes previously produced by EncodeEntry.
func DecodeEntry(raw []byte) (*Entry, error) {
	var g entryGob
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return nil, NewError(KindParse, "decode cache entry", err)
	}
	return &Entry{
		Data:            g.Data,
		ETag:            g.ETag,
		ServerDate:      g.ServerDate,
		TTL:             g.TTL,
		SoftTTL:         g.SoftTTL,
		ResponseHeaders: g.ResponseHeaders,
	}, nil
}

// mergeEntryMetadata produces the Entry a 304 response should persist: the
// previously-cached body, refreshed with the freshly computed TTLs and any
// headers the revalidation response carried.
func mergeEntryMetadata(prev, fresh *Entry) *Entry {
	if prev == nil {
		return fresh
	}
	if fresh == nil {
		return prev
	}
	merged := prev.clone()
	merged.TTL = fresh.TTL
	merged.SoftTTL = fresh.SoftTTL
	merged.ServerDate = fresh.ServerDate
	if fresh.ETag != "" {
		merged.ETag = fresh.ETag
	}
	for k, v := range fresh.ResponseHeaders {
		if merged.ResponseHeaders == nil {
			merged.ResponseHeaders = map[string]string{}
		}
		merged.ResponseHeaders[k] = v
	}
	return merged
}

// Cache is a keyed store of Entry values with TTL/soft-expiry semantics.
// Implementations must be safe for concurrent Get/Put; any serialization of
// Entry to an underlying byte store is the implementation's concern (see
// EncodeEntry/DecodeEntry for a ready-made gob codec).
type Cache interface {
	// Initialize performs any blocking setup (opening a database, dialing a
	// backend) and is called at most once, before the first Get, from the
	// cache dispatcher's goroutine.
	Initialize(ctx context.Context) error
	// Get returns the entry for key, or ok=false if absent.
	Get(ctx context.Context, key string) (entry *Entry, ok bool, err error)
	// Put stores entry under key, replacing any prior value.
	Put(ctx context.Context, key string, entry *Entry) error
	// Invalidate marks the entry stale without removing it: fullExpire=true
	// also clears SoftTTL/TTL so IsExpired reports true; fullExpire=false
	// only clears SoftTTL, forcing a background refresh on next access.
	Invalidate(ctx context.Context, key string, fullExpire bool) error
	// Remove deletes the entry for key, if any.
	Remove(ctx context.Context, key string) error
	// Clear removes every entry. Intended for tests and maintenance tasks.
	Clear(ctx context.Context) error
}

// nowFunc is overridden in tests to control Entry freshness decisions
// deterministically.
var nowFunc = time.Now
