package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(2 * time.Minute)

	// still held until someone reads it
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ZeroTTLKeepsValue(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(365 * 24 * time.Hour)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("new"), 0))

	ok, err := store.CompareAndDelete(ctx, "k", []byte("old"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndDelete(ctx, "k", []byte("new"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("current"), 0))

	ok, err := store.CompareAndSwap(ctx, "k", []byte("stale"), []byte("next"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("current"), got)

	ok, err = store.CompareAndSwap(ctx, "k", []byte("current"), []byte("next"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), got)

	clock.Advance(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ok, err = store.CompareAndSwap(ctx, "missing", nil, []byte("next"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
