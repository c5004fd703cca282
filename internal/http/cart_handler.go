package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartManager interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot(ctx context.Context) domain.CartSnapshot
	Pending() []service.Mutation
	AddItem(ctx context.Context, productID string, quantity int, unit *domain.UnitData) (service.Mutation, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (service.Mutation, error)
	RemoveItem(ctx context.Context, productID string) (service.Mutation, error)
	ClearCart(ctx context.Context) (service.Mutation, error)
}

type CartHandler struct {
	cart    CartManager
	timeout time.Duration
}

func NewCartHandler(cart CartManager, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// Name and Price are optional display data; without them the catalog is consulted.
	Name     string           `json:"name,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	ImageURL string           `json:"image_url,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type MutationDTO struct {
	ID    string `json:"id"`
	Op    string `json:"op"`
	State string `json:"state"`
}

type CartResponseDTO struct {
	ID       string            `json:"id"`
	Items    []domain.CartLine `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Tax      decimal.Decimal   `json:"tax"`
	Total    decimal.Decimal   `json:"total"`
	Pending  int               `json:"pending"`
	Stale    bool              `json:"stale,omitempty"`
	Mutation *MutationDTO      `json:"mutation,omitempty"`
}

func (h *CartHandler) cartResponse(ctx context.Context, stale bool, m *service.Mutation) CartResponseDTO {
	snap := h.cart.Snapshot(ctx)
	resp := CartResponseDTO{
		ID:       snap.ID,
		Items:    snap.Items,
		Subtotal: snap.Subtotal,
		Tax:      snap.Tax,
		Total:    snap.Total,
		Pending:  len(h.cart.Pending()),
		Stale:    stale,
	}
	if m != nil {
		resp.Mutation = &MutationDTO{ID: m.ID, Op: string(m.Kind), State: string(m.State)}
	}
	return resp
}

// GET /api/v1/cart
// A failed fetch still answers with the local view, flagged stale.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var err error
	if r.URL.Query().Get("refresh") == "true" {
		err = h.cart.Refresh(ctx)
	} else {
		err = h.cart.Load(ctx)
	}
	if err != nil && !service.IsStale(err) {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, err != nil, nil))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	var unit *domain.UnitData
	if req.Name != "" && req.Price != nil {
		unit = &domain.UnitData{Name: req.Name, Price: *req.Price, ImageURL: req.ImageURL}
	}

	m, err := h.cart.AddItem(ctx, req.ProductID, req.Quantity, unit)
	h.respondMutation(ctx, w, http.StatusCreated, m, err)
}

// PUT /api/v1/cart/items/{product_id}
// A quantity below 1 removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	m, err := h.cart.UpdateQuantity(ctx, productID, req.Quantity)
	h.respondMutation(ctx, w, http.StatusOK, m, err)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	m, err := h.cart.RemoveItem(ctx, productID)
	h.respondMutation(ctx, w, http.StatusOK, m, err)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	m, err := h.cart.ClearCart(ctx)
	h.respondMutation(ctx, w, http.StatusOK, m, err)
}

// respondMutation answers with the cart view. A succeeded mutation whose refetch failed is
// still a success, flagged stale.
func (h *CartHandler) respondMutation(ctx context.Context, w http.ResponseWriter, status int, m service.Mutation, err error) {
	if err != nil && !(m.State == service.MutationSucceeded && service.IsStale(err)) {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, status, h.cartResponse(ctx, err != nil, &m))
}
