package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/volley-go/volley/cache/mongodb"
	"github.com/volley-go/volley/cachetest"
)

func TestCache(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	config := mongodb.Config{
		URI:        uri,
		Database:   "volleycache_test",
		Collection: "cache_test",
		Timeout:    2 * time.Second,
	}

	cache, err := mongodb.New(context.Background(), config)
	if err != nil {
		t.Skipf("skipping test; MongoDB unavailable: %v", err)
	}
	defer cache.Close()

	cachetest.Cache(t, cache)
}
