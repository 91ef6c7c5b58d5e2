package volley

import "testing"

func TestHashKeyIsStableAndDistinct(t *testing.T) {
	a := HashKey("http://example.com/a")
	b := HashKey("http://example.com/a")
	c := HashKey("http://example.com/b")

	if a != b {
		t.Fatal("HashKey should be deterministic for the same input")
	}
	if a == c {
		t.Fatal("HashKey should differ for different inputs")
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex digest, got %d chars: %q", len(a), a)
	}
}
