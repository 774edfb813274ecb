package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) *SQLiteStorage {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	s := setupTestSQLite(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart", "[]"))
	require.NoError(t, s.Set(ctx, "cart", `[{"id":"1"}]`))

	v, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Delete(ctx, "cart", "cartExpiration"))
	_, err = s.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_MigrationsIdempotent(t *testing.T) {
	s := setupTestSQLite(t)
	require.NoError(t, s.RunMigrations())
	require.NoError(t, s.Ping(context.Background()))
}
