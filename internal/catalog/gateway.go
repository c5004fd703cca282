// Package catalog resolves product data for the cart: cache-aside reads over the remote catalog.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// fanOutLimit caps concurrent product fetches in GetProducts.
const fanOutLimit = 8

type ProductSource interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type Gateway struct {
	source        ProductSource
	cache         cache.ProductCache
	imagesBaseURL string
	logger        *slog.Logger
	sfg           singleflight.Group // Prevents cache stampede
}

// NewGateway returns a gateway. A nil productCache disables caching.
func NewGateway(source ProductSource, productCache cache.ProductCache, imagesBaseURL string, logger *slog.Logger) *Gateway {
	if productCache == nil {
		productCache = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		source:        source,
		cache:         productCache,
		imagesBaseURL: imagesBaseURL,
		logger:        logger,
	}
}

func (g *Gateway) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := g.cache.Get(ctx, productID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		g.logger.Warn("cache get error", "product_id", productID, "error", err)
	}

	sharedCtx := context.WithoutCancel(ctx)
	v, err, _ := g.sfg.Do(productID, func() (interface{}, error) {
		p, err := g.source.GetProduct(sharedCtx, productID)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := g.cache.Set(setCtx, p); errSet != nil {
				g.logger.Warn("cache set error", "product_id", productID, "error", errSet)
			}
		}()

		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

// GetProducts resolves ids concurrently. The result is in the order of ids; the first failure wins.
func (g *Gateway) GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fanOutLimit)
	for i, id := range ids {
		eg.Go(func() error {
			p, err := g.GetProduct(egCtx, id)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

func (g *Gateway) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	return g.source.ListProducts(ctx, filter)
}

func (g *Gateway) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return g.source.ListCategories(ctx)
}

// Invalidate drops a cached product so the next read goes to the server.
func (g *Gateway) Invalidate(productID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.cache.Delete(ctx, productID); err != nil {
		g.logger.Warn("cache invalidate error", "product_id", productID, "error", err)
	}
}

// UnitData is the display data captured when p is added to the cart.
func (g *Gateway) UnitData(p *domain.Product) domain.UnitData {
	unit := domain.UnitData{Name: p.Name, Price: p.Price}
	if len(p.Images) > 0 {
		unit.ImageURL = ImageURL(g.imagesBaseURL, p.Images[0].ImageURL)
	}
	return unit
}

// ImageURL resolves a server image path against base. Paths outside images/ are
// product images and live under images/products/. Absolute URLs are returned as is.
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	clean := strings.TrimLeft(path, "/")
	if !strings.HasPrefix(clean, "images/") {
		clean = "images/products/" + clean
	}
	return strings.TrimRight(base, "/") + "/api/images/" + clean
}
