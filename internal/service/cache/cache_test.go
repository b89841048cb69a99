package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct{ calls int }

func (f *failingCache) GetBytes(context.Context, string) ([]byte, bool, error) {
	f.calls++
	return nil, false, errors.New("connection refused")
}

func (f *failingCache) SetBytes(context.Context, string, []byte, time.Duration) error {
	f.calls++
	return errors.New("connection refused")
}

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(2)
	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.SetBytes(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.GetBytes(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok, _ = c.GetBytes(ctx, "c")
	assert.True(t, ok)

	// overwriting an existing key does not evict
	require.NoError(t, c.SetBytes(ctx, "c", []byte("33"), 0))
	assert.Equal(t, 2, c.Len())
}

func TestTTLCacheExpiryReleasesOrderSlot(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
		now = now.Add(2 * time.Minute)
		_, ok, err := c.GetBytes(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	}
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.order)

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, []string{"k"}, c.order)
}

func TestFallbackUsesSecondaryWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	primary := &failingCache{}
	var ops []string
	f := NewFallback(primary, NewTTLCache(10), func(op string, err error) { ops = append(ops, op) })

	require.NoError(t, f.SetBytes(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := f.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)
	assert.Equal(t, []string{"set", "get"}, ops)
	assert.Equal(t, 2, primary.calls)
}

func TestFallbackWithoutPrimary(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(nil, NewTTLCache(10), nil)
	_, ok, err := f.GetBytes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
