package multicache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volley-go/volley"
	"github.com/volley-go/volley/cache/memorycache"
	"github.com/volley-go/volley/cachetest"
	"github.com/volley-go/volley/wrapper/multicache"
)

func entry(data string) *volley.Entry {
	return &volley.Entry{Data: []byte(data), TTL: time.Now().Add(time.Hour), SoftTTL: time.Now().Add(time.Hour)}
}

func TestNewRejectsNoTiers(t *testing.T) {
	_, err := multicache.New()
	assert.Error(t, err)
}

func TestNewRejectsNilTier(t *testing.T) {
	_, err := multicache.New(memorycache.New(), nil)
	assert.Error(t, err)
}

func TestCacheConformance(t *testing.T) {
	mc, err := multicache.New(memorycache.New(), memorycache.New())
	require.NoError(t, err)
	cachetest.Cache(t, mc)
}

func TestGetPromotesToFasterTiers(t *testing.T) {
	ctx := context.Background()
	tier1 := memorycache.New()
	tier2 := memorycache.New()
	tier3 := memorycache.New()

	mc, err := multicache.New(tier1, tier2, tier3)
	require.NoError(t, err)

	require.NoError(t, tier3.Put(ctx, "hot", entry("value")))

	got, ok, err := mc.Get(ctx, "hot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got.Data)

	_, ok, _ = tier1.Get(ctx, "hot")
	assert.True(t, ok, "expected promotion to tier1")
	_, ok, _ = tier2.Get(ctx, "hot")
	assert.True(t, ok, "expected promotion to tier2")
}

func TestPutWritesEveryTier(t *testing.T) {
	ctx := context.Background()
	tier1 := memorycache.New()
	tier2 := memorycache.New()
	mc, err := multicache.New(tier1, tier2)
	require.NoError(t, err)

	require.NoError(t, mc.Put(ctx, "key", entry("value")))

	_, ok, _ := tier1.Get(ctx, "key")
	assert.True(t, ok)
	_, ok, _ = tier2.Get(ctx, "key")
	assert.True(t, ok)
}

func TestRemoveClearsEveryTier(t *testing.T) {
	ctx := context.Background()
	tier1 := memorycache.New()
	tier2 := memorycache.New()
	mc, err := multicache.New(tier1, tier2)
	require.NoError(t, err)

	require.NoError(t, mc.Put(ctx, "key", entry("value")))
	require.NoError(t, mc.Remove(ctx, "key"))

	_, ok, _ := tier1.Get(ctx, "key")
	assert.False(t, ok)
	_, ok, _ = tier2.Get(ctx, "key")
	assert.False(t, ok)
}
