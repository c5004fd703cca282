package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never stores anything. Used when no redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Product, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, *domain.Product) error           { return nil }
func (Noop) Delete(context.Context, string) error                 { return nil }
