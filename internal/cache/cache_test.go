package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) RefreshCache {
	t.Helper()

	mr := miniredis.RunT(t)

	c, err := NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestRedisCache_SetGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	entry := &RefreshEntry{
		UserID:    uuid.New(),
		Revoked:   false,
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}

	require.NoError(t, c.Set(ctx, "hash-1", entry, time.Hour))

	got, found, err := c.Get(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entry.UserID, got.UserID)
	require.False(t, got.Revoked)
	require.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisCache_Miss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	got, found, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, got)
}

func TestRedisCache_MarkRevoked(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	entry := &RefreshEntry{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	require.NoError(t, c.Set(ctx, "hash-2", entry, time.Hour))
	require.NoError(t, c.MarkRevoked(ctx, "hash-2"))

	got, found, err := c.Get(ctx, "hash-2")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.Revoked)
	require.Equal(t, entry.UserID, got.UserID)
}

func TestRedisCache_TTLEviction(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	c, err := NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	entry := &RefreshEntry{UserID: uuid.New(), ExpiresAt: time.Now().UTC().Add(time.Minute)}

	require.NoError(t, c.Set(ctx, "hash-3", entry, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "hash-3")
	require.NoError(t, err)
	require.False(t, found)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache("not-a-url", "")
	require.Error(t, err)
}
