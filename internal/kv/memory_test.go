package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDel(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 0))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.NoError(t, store.Del(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 10*time.Millisecond))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}
