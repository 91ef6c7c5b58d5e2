package volley

import "testing"

func TestWithThreadPoolSizeAppliesPositiveValues(t *testing.T) {
	q := NewRequestQueue(nil, nil, nil, WithThreadPoolSize(8))
	if q.threadPoolSize != 8 {
		t.Fatalf("expected threadPoolSize 8, got %d", q.threadPoolSize)
	}
}

func TestWithThreadPoolSizeIgnoresNonPositiveValues(t *testing.T) {
	q := NewRequestQueue(nil, nil, nil, WithThreadPoolSize(0))
	if q.threadPoolSize != 4 {
		t.Fatalf("expected default threadPoolSize 4 preserved, got %d", q.threadPoolSize)
	}
}

func TestWithTrafficTaggerInstallsHook(t *testing.T) {
	var seen any
	q := NewRequestQueue(nil, nil, nil, WithTrafficTagger(func(tag any) { seen = tag }))
	if q.trafficTagger == nil {
		t.Fatal("expected trafficTagger to be set")
	}
	q.trafficTagger("my-tag")
	if seen != "my-tag" {
		t.Fatalf("expected tagger to observe 'my-tag', got %v", seen)
	}
}
