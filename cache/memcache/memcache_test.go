package memcache

import (
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/volley-go/volley/cachetest"
)

func TestCache(t *testing.T) {
	client := memcache.New("localhost:11211")
	if err := client.Ping(); err != nil {
		t.Skipf("skipping test; no server running at localhost:11211")
	}
	_ = client.FlushAll()

	cachetest.Cache(t, NewWithClient(client))
}
