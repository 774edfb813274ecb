package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestPostgres(t *testing.T) *PostgresStorage {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgresStorage(dsn)
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStorage_RoundTrip(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "cart:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart:abc", "[]"))
	require.NoError(t, s.Set(ctx, "cartExpiration:abc", "1700000000000"))
	require.NoError(t, s.Set(ctx, "cart:abc", `[{"id":"1"}]`))

	v, err := s.Get(ctx, "cart:abc")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Delete(ctx, "cart:abc", "cartExpiration:abc"))
	_, err = s.Get(ctx, "cartExpiration:abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStorage_MigrationsIdempotent(t *testing.T) {
	s := setupTestPostgres(t)
	require.NoError(t, s.RunMigrations())
}
