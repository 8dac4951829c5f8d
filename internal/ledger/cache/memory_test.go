package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)

	_, ok, err := cache.Lookup(ctx, "cred-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Store(ctx, "cred-1", true))
	confirmed, ok, err := cache.Lookup(ctx, "cred-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, confirmed)

	require.NoError(t, cache.Store(ctx, "cred-2", false))
	confirmed, ok, err = cache.Lookup(ctx, "cred-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, confirmed)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Store(ctx, "cred-1", true))

	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok, err := cache.Lookup(ctx, "cred-1")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are misses")
}
