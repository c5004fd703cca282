package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 0), mr
}

func testProduct() *domain.Product {
	return &domain.Product{
		ID:    "P1",
		Name:  "Laptop",
		Price: decimal.RequireFromString("14999.99"),
		Stock: 3,
		Images: []domain.ProductImage{
			{ID: "I1", ProductID: "P1", ImageURL: "/images/laptop.png"},
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	data, err := json.Marshal(testProduct())
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("P1"), string(data)))

	got, err := cache.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "Laptop", got.Name)
	assert.Equal(t, "14999.99", got.Price.String())
	require.Len(t, got.Images, 1)
	assert.Equal(t, "/images/laptop.png", got.Images[0].ImageURL)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("P1"), "not json"))

	_, err := cache.Get(context.Background(), "P1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, err.Error(), "unmarshal product failed")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get failed")
}

func TestSet_RoundTripWithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct()))
	assert.True(t, mr.Exists(cacheKey("P1")))

	ttl := mr.TTL(cacheKey("P1"))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	got, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "P1", got.ID)
}

func TestSet_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct()))
	mr.FastForward(21 * time.Minute)

	_, err := cache.Get(ctx, "P1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSet_RequiresID(t *testing.T) {
	cache, _ := setupTestRedis(t)

	assert.Error(t, cache.Set(context.Background(), &domain.Product{Name: "x"}))
	assert.Error(t, cache.Set(context.Background(), nil))
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct()))
	require.NoError(t, cache.Delete(ctx, "P1"))
	assert.False(t, mr.Exists(cacheKey("P1")))

	// deleting a missing key is not an error
	assert.NoError(t, cache.Delete(ctx, "P1"))
}

func TestNoop(t *testing.T) {
	var c ProductCache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testProduct()))
	_, err := c.Get(ctx, "P1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "P1"))
}
