// Package cachetest exercises any volley.Cache implementation against the
// contract every backend is expected to honor: miss-then-hit, overwrite,
// Remove, Clear, and the two Invalidate modes.
package cachetest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/volley-go/volley"
)

// Cache runs the shared conformance suite against cache. Call it from each
// backend's own _test.go with a freshly constructed instance; Cache calls
// Initialize on it before running the checks.
func Cache(t *testing.T, cache volley.Cache) {
	t.Helper()
	ctx := context.Background()
	if err := cache.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	key := "testKey"
	_, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get before put: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	now := time.Now().UTC().Truncate(time.Second)
	entry := &volley.Entry{
		Data:            []byte("some bytes"),
		ETag:            `"abc123"`,
		ServerDate:      now,
		TTL:             now.Add(time.Hour),
		SoftTTL:         now.Add(time.Minute),
		ResponseHeaders: map[string]string{"Content-Type": "text/plain"},
	}
	if err := cache.Put(ctx, key, entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after put: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an entry we just put")
	}
	if !bytes.Equal(got.Data, entry.Data) {
		t.Fatalf("got Data %q, want %q", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag {
		t.Fatalf("got ETag %q, want %q", got.ETag, entry.ETag)
	}

	overwritten := &volley.Entry{Data: []byte("new bytes"), TTL: now.Add(2 * time.Hour)}
	if err := cache.Put(ctx, key, overwritten); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	got, _, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !bytes.Equal(got.Data, overwritten.Data) {
		t.Fatalf("overwrite did not take effect: got %q", got.Data)
	}

	if err := cache.Invalidate(ctx, key, false); err != nil {
		t.Fatalf("invalidate soft: %v", err)
	}
	got, ok, err = cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("entry should survive soft invalidate: ok=%v err=%v", ok, err)
	}
	if !got.RefreshNeeded() {
		t.Fatal("soft invalidate should force RefreshNeeded")
	}

	if err := cache.Invalidate(ctx, key, true); err != nil {
		t.Fatalf("invalidate hard: %v", err)
	}
	got, ok, err = cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("entry should survive hard invalidate: ok=%v err=%v", ok, err)
	}
	if !got.IsExpired() {
		t.Fatal("hard invalidate should force IsExpired")
	}

	if err := cache.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, ok, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after remove: %v", err)
	}
	if ok {
		t.Fatal("removed key still present")
	}

	if err := cache.Put(ctx, "a", &volley.Entry{Data: []byte("1")}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := cache.Put(ctx, "b", &volley.Entry{Data: []byte("2")}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, ok, _ := cache.Get(ctx, k); ok {
			t.Fatalf("key %q survived Clear", k)
		}
	}
}
