package caching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotCachePutGet(t *testing.T) {
	cache, err := NewSnapshotCache(16)
	require.NoError(t, err)

	_, ok := cache.Get("ABCDEF", "user-1")
	require.False(t, ok)

	cache.Put("ABCDEF", "user-1", []byte("snapshot-1"))
	got, ok := cache.Get("ABCDEF", "user-1")
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-1"), got)

	// Views are per user.
	_, ok = cache.Get("ABCDEF", "user-2")
	require.False(t, ok)
}

func TestSnapshotCacheInvalidateDropsAllViews(t *testing.T) {
	cache, err := NewSnapshotCache(16)
	require.NoError(t, err)

	cache.Put("ABCDEF", "user-1", []byte("snapshot-1"))
	cache.Put("ABCDEF", "user-2", []byte("snapshot-2"))
	cache.Put("XYZZYX", "user-1", []byte("snapshot-3"))

	cache.Invalidate("ABCDEF")

	_, ok := cache.Get("ABCDEF", "user-1")
	require.False(t, ok)
	_, ok = cache.Get("ABCDEF", "user-2")
	require.False(t, ok)

	// Other games keep their cached views.
	got, ok := cache.Get("XYZZYX", "user-1")
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-3"), got)

	// A fresh render for the new version is cacheable again.
	cache.Put("ABCDEF", "user-1", []byte("snapshot-4"))
	got, ok = cache.Get("ABCDEF", "user-1")
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-4"), got)
}

func TestSnapshotCacheEvictsOldEntries(t *testing.T) {
	cache, err := NewSnapshotCache(2)
	require.NoError(t, err)

	cache.Put("AAAAAA", "user-1", []byte("a"))
	cache.Put("BBBBBB", "user-1", []byte("b"))
	cache.Put("CCCCCC", "user-1", []byte("c"))

	_, ok := cache.Get("AAAAAA", "user-1")
	require.False(t, ok)
	_, ok = cache.Get("CCCCCC", "user-1")
	require.True(t, ok)
}
