package volley

import (
	"bytes"
	"testing"
	"time"
)

func TestEntryIsExpiredAndRefreshNeeded(t *testing.T) {
	now := time.Now()
	defer func() { nowFunc = time.Now }()
	nowFunc = func() time.Time { return now }

	fresh := &Entry{TTL: now.Add(time.Hour), SoftTTL: now.Add(-time.Minute)}
	if fresh.IsExpired() {
		t.Fatal("entry with future TTL should not be expired")
	}
	if !fresh.RefreshNeeded() {
		t.Fatal("entry with past SoftTTL should need refresh")
	}

	stale := &Entry{TTL: now.Add(-time.Minute)}
	if !stale.IsExpired() {
		t.Fatal("entry with past TTL should be expired")
	}

	var zero *Entry
	if !zero.IsExpired() || !zero.RefreshNeeded() {
		t.Fatal("nil entry should be treated as expired and needing refresh")
	}

	noTTL := &Entry{}
	if !noTTL.IsExpired() {
		t.Fatal("zero-value TTL should be treated as expired")
	}
}

func TestEntryCloneDeepCopies(t *testing.T) {
	original := &Entry{
		Data:            []byte("hello"),
		ResponseHeaders: map[string]string{"Content-Type": "text/plain"},
	}
	clone := original.Clone()

	clone.Data[0] = 'H'
	clone.ResponseHeaders["Content-Type"] = "application/json"

	if original.Data[0] != 'h' {
		t.Fatal("cloning should not alias the original Data slice")
	}
	if original.ResponseHeaders["Content-Type"] != "text/plain" {
		t.Fatal("cloning should not alias the original headers map")
	}
}

func TestEncodeDecodeEntryRoundTrips(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := &Entry{
		Data:            []byte("payload"),
		ETag:            `"v1"`,
		ServerDate:      now,
		TTL:             now.Add(time.Hour),
		SoftTTL:         now.Add(time.Minute),
		ResponseHeaders: map[string]string{"X-Test": "1"},
	}

	raw, err := EncodeEntry(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeEntry(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !bytes.Equal(decoded.Data, original.Data) {
		t.Fatalf("Data mismatch: got %q want %q", decoded.Data, original.Data)
	}
	if decoded.ETag != original.ETag {
		t.Fatalf("ETag mismatch: got %q want %q", decoded.ETag, original.ETag)
	}
	if !decoded.TTL.Equal(original.TTL) {
		t.Fatalf("TTL mismatch: got %v want %v", decoded.TTL, original.TTL)
	}
	if decoded.ResponseHeaders["X-Test"] != "1" {
		t.Fatalf("ResponseHeaders not preserved: %v", decoded.ResponseHeaders)
	}
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	if _, err := DecodeEntry([]byte("not a gob stream")); err == nil {
		t.Fatal("expected an error decoding garbage bytes")
	}
}

func TestMergeEntryMetadataKeepsPriorBodyAndHeaders(t *testing.T) {
	now := time.Now()
	prev := &Entry{
		Data:            []byte("cached body"),
		ETag:            `"old"`,
		ResponseHeaders: map[string]string{"X-Old": "1"},
	}
	fresh := &Entry{
		TTL:             now.Add(time.Hour),
		SoftTTL:         now.Add(time.Minute),
		ServerDate:      now,
		ResponseHeaders: map[string]string{"X-New": "1"},
	}

	merged := mergeEntryMetadata(prev, fresh)

	if !bytes.Equal(merged.Data, prev.Data) {
		t.Fatal("304 merge must keep the previously cached body")
	}
	if merged.ETag != prev.ETag {
		t.Fatal("a 304 with no new ETag should keep the prior ETag")
	}
	if !merged.TTL.Equal(fresh.TTL) || !merged.SoftTTL.Equal(fresh.SoftTTL) {
		t.Fatal("304 merge must adopt the freshly computed TTLs")
	}
	if merged.ResponseHeaders["X-Old"] != "1" || merged.ResponseHeaders["X-New"] != "1" {
		t.Fatalf("304 merge should union headers, got %v", merged.ResponseHeaders)
	}
}
