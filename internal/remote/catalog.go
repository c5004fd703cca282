package remote

import (
	"context"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-resty/resty/v2"
)

func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var dto productDTO
	err := c.getJSON(ctx, "/products/{productId}", &dto, func(r *resty.Request) {
		r.SetPathParam("productId", productID)
	})
	if err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ListProducts(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	var dto productPageDTO
	err := c.getJSON(ctx, "/products", &dto, func(r *resty.Request) {
		params := map[string]string{
			"category":  f.Category,
			"search":    f.Search,
			"sortBy":    f.SortBy,
			"sortOrder": f.SortOrder,
		}
		if f.Page > 0 {
			params["page"] = strconv.Itoa(f.Page)
		}
		if f.PageSize > 0 {
			params["pageSize"] = strconv.Itoa(f.PageSize)
		}
		for k, v := range params {
			if v != "" {
				r.SetQueryParam(k, v)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	page := &domain.ProductPage{
		Products:   make([]domain.Product, 0, len(dto.Products)),
		Pagination: dto.Pagination,
	}
	for _, p := range dto.Products {
		page.Products = append(page.Products, *p.toDomain())
	}
	return page, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.getJSON(ctx, "/categories", &categories, nil); err != nil {
		return nil, err
	}
	return categories, nil
}
