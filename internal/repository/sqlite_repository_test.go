package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	db "github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.SQLiteRepository {
	// Use in-memory database for tests
	repo, err := db.NewSQLiteRepository(":memory:")
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestGet_MissingKey(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), "cartId")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestPutGet_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "cartId", []byte("abc")))

	value, err := repo.Get(ctx, "cartId")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestPut_Overwrites(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "cart-storage", []byte("[]")))
	require.NoError(t, repo.Put(ctx, "cart-storage", []byte(`[{"productId":"P1"}]`)))

	value, err := repo.Get(ctx, "cart-storage")
	require.NoError(t, err)
	assert.Equal(t, `[{"productId":"P1"}]`, string(value))
}

func TestDelete_RemovesKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "cartId", []byte("abc")))
	require.NoError(t, repo.Delete(ctx, "cartId"))

	_, err := repo.Get(ctx, "cartId")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	// deleting an absent key is not an error
	assert.NoError(t, repo.Delete(ctx, "cartId"))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestGet_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, "cartId")
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrKeyNotFound)
}

func TestFileDatabase_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storefront.db")
	ctx := context.Background()

	repo, err := db.NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	require.NoError(t, repo.Put(ctx, "cartId", []byte("persisted")))
	require.NoError(t, repo.Close())

	reopened, err := db.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.RunMigrations())

	value, err := reopened.Get(ctx, "cartId")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(value))
}
