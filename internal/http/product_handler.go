package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/go-chi/chi/v5"
)

type ProductReader interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type ProductHandler struct {
	catalog ProductReader
	timeout time.Duration
}

func NewProductHandler(catalog ProductReader, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/products?page=1&page_size=20&category=..&search=..&sort_by=..&sort_order=asc
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, r, "page_size")
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.catalog.ListProducts(ctx, domain.ProductFilter{
		Page:      page,
		PageSize:  pageSize,
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) handleCatalogError(w http.ResponseWriter, err error) {
	if remote.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
}
