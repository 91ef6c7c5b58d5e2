package freecache_test

import (
	"testing"

	"github.com/volley-go/volley/cache/freecache"
	"github.com/volley-go/volley/cachetest"
)

func TestCache(t *testing.T) {
	cachetest.Cache(t, freecache.New(512*1024))
}
