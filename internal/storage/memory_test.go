package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(0)

	_, err := s.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart", "[]"))
	v, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	require.NoError(t, s.Delete(ctx, "cart", "missing"))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStorage_Quota(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(10)

	require.NoError(t, s.Set(ctx, "k", "12345"))
	assert.ErrorIs(t, s.Set(ctx, "other", "123456"), ErrQuotaExceeded)

	// Overwriting releases the old value's space first.
	require.NoError(t, s.Set(ctx, "k", "123456789"))
	_, err := s.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "floppy"})
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
}
