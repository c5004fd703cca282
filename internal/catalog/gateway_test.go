package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	calls   atomic.Int32
	delay   time.Duration
	fail    map[string]error
	mu      sync.Mutex
	filters []domain.ProductFilter
}

func (m *mockSource) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fail[id]; err != nil {
		return nil, err
	}
	return &domain.Product{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.RequireFromString("14999.99"),
		Images: []domain.ProductImage{{ID: "I" + id, ProductID: id, ImageURL: id + ".png"}},
	}, nil
}

func (m *mockSource) ListProducts(_ context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	m.mu.Lock()
	m.filters = append(m.filters, f)
	m.mu.Unlock()
	return &domain.ProductPage{Products: []domain.Product{{ID: "P1"}}}, nil
}

func (m *mockSource) ListCategories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "C1", Name: "Computers"}}, nil
}

func setupRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCache(client, 0), mr
}

func TestGetProduct_CacheAside(t *testing.T) {
	rc, mr := setupRedisCache(t)
	src := &mockSource{}
	g := NewGateway(src, rc, "http://localhost:5188", nil)
	ctx := context.Background()

	p, err := g.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Product P1", p.Name)
	assert.Equal(t, int32(1), src.calls.Load())

	// cache population is asynchronous
	require.Eventually(t, func() bool { return mr.Exists("product:P1") }, time.Second, 10*time.Millisecond)

	p, err = g.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "14999.99", p.Price.String())
	assert.Equal(t, int32(1), src.calls.Load(), "second read must be served from cache")

	g.Invalidate("P1")
	assert.False(t, mr.Exists("product:P1"))
}

func TestGetProduct_ConcurrentMissesCollapse(t *testing.T) {
	src := &mockSource{delay: 50 * time.Millisecond}
	g := NewGateway(src, nil, "", nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.GetProduct(context.Background(), "P1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGetProduct_FirstCallerGoingAwayDoesNotFailJoiners(t *testing.T) {
	src := &mockSource{delay: 100 * time.Millisecond}
	g := NewGateway(src, nil, "", nil)

	first, cancel := context.WithCancel(context.Background())
	go func() { _, _ = g.GetProduct(first, "P1") }()
	time.Sleep(20 * time.Millisecond)

	joinDone := make(chan error, 1)
	go func() {
		_, err := g.GetProduct(context.Background(), "P1")
		joinDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.NoError(t, <-joinDone)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGetProduct_CacheErrorFallsThrough(t *testing.T) {
	rc, mr := setupRedisCache(t)
	mr.Close()
	src := &mockSource{}
	g := NewGateway(src, rc, "", nil)

	p, err := g.GetProduct(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "P1", p.ID)
}

func TestGetProduct_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := &mockSource{fail: map[string]error{"P1": boom}}
	g := NewGateway(src, nil, "", nil)

	_, err := g.GetProduct(context.Background(), "P1")
	assert.ErrorIs(t, err, boom)
}

func TestGetProducts_KeepsOrder(t *testing.T) {
	src := &mockSource{}
	g := NewGateway(src, nil, "", nil)

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("P%d", i)
	}

	products, err := g.GetProducts(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, products, len(ids))
	for i, p := range products {
		assert.Equal(t, ids[i], p.ID)
	}
}

func TestGetProducts_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	src := &mockSource{fail: map[string]error{"P2": boom}}
	g := NewGateway(src, nil, "", nil)

	_, err := g.GetProducts(context.Background(), []string{"P1", "P2", "P3"})
	assert.ErrorIs(t, err, boom)
}

func TestListPassThrough(t *testing.T) {
	src := &mockSource{}
	g := NewGateway(src, nil, "", nil)

	f := domain.ProductFilter{Page: 2, Search: "lap"}
	page, err := g.ListProducts(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, []domain.ProductFilter{f}, src.filters)

	cats, err := g.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestUnitData(t *testing.T) {
	g := NewGateway(&mockSource{}, nil, "http://localhost:5188", nil)

	unit := g.UnitData(&domain.Product{
		Name:   "Laptop",
		Price:  decimal.RequireFromString("14999.99"),
		Images: []domain.ProductImage{{ImageURL: "laptop.png"}, {ImageURL: "other.png"}},
	})
	assert.Equal(t, "Laptop", unit.Name)
	assert.Equal(t, "14999.99", unit.Price.String())
	assert.Equal(t, "http://localhost:5188/api/images/images/products/laptop.png", unit.ImageURL)

	assert.Empty(t, g.UnitData(&domain.Product{Name: "No image"}).ImageURL)
}

func TestImageURL(t *testing.T) {
	base := "http://localhost:5188/"
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"laptop.png", "http://localhost:5188/api/images/images/products/laptop.png"},
		{"///laptop.png", "http://localhost:5188/api/images/images/products/laptop.png"},
		{"images/products/laptop.png", "http://localhost:5188/api/images/images/products/laptop.png"},
		{"/images/banners/sale.jpg", "http://localhost:5188/api/images/images/banners/sale.jpg"},
		{"https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageURL(base, tt.path))
		})
	}
}
