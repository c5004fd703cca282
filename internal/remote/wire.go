package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// wireTime accepts RFC 3339 timestamps as well as the zone-less form some servers emit.
type wireTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	// unknown layouts decode as the zero time
	return nil
}

// wireStatus accepts either the status name or its numeric position. Numbers outside the known
// range are kept as their decimal text.
type wireStatus domain.OrderStatus

var numericStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

func (s *wireStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = wireStatus(name)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("unsupported order status %s", data)
	}
	if n < 0 || n >= len(numericStatuses) {
		*s = wireStatus(strconv.Itoa(n))
		return nil
	}
	*s = wireStatus(numericStatuses[n])
	return nil
}

// money is serialized as a bare JSON number carrying the exact decimal digits.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type cartItemDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl"`
	Image     string          `json:"image"`
}

type cartDTO struct {
	ID       string          `json:"id"`
	Items    []cartItemDTO   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (c cartDTO) toDomain() *domain.CartSnapshot {
	snap := &domain.CartSnapshot{
		ID:       c.ID,
		Items:    make([]domain.CartLine, 0, len(c.Items)),
		Subtotal: c.Subtotal,
		Tax:      c.Tax,
		Total:    c.Total,
	}
	for _, it := range c.Items {
		img := it.ImageURL
		if img == "" {
			img = it.Image
		}
		id, productID := it.ID, it.ProductID
		if id == "" {
			id = productID
		}
		if productID == "" {
			productID = id
		}
		snap.Items = append(snap.Items, domain.CartLine{
			ID:        id,
			ProductID: productID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			ImageURL:  img,
		})
	}
	return snap
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type orderLineDTO struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	UnitPrice   json.Number `json:"unitPrice"`
	Quantity    int         `json:"quantity"`
	ImageURL    string      `json:"imageUrl,omitempty"`
}

// createOrderRequest is the POST /orders body. Status is always 0 (pending) on creation.
type createOrderRequest struct {
	Items           []orderLineDTO         `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	TotalAmount     json.Number            `json:"totalAmount"`
	Status          int                    `json:"status"`
}

func newCreateOrderRequest(sub *domain.OrderSubmission) createOrderRequest {
	req := createOrderRequest{
		Items:           make([]orderLineDTO, 0, len(sub.Items)),
		ShippingAddress: sub.ShippingAddress,
		PaymentMethod:   sub.PaymentMethod,
		TotalAmount:     money(sub.TotalAmount),
	}
	for _, it := range sub.Items {
		req.Items = append(req.Items, orderLineDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   money(it.UnitPrice),
			Quantity:    it.Quantity,
			ImageURL:    it.ImageURL,
		})
	}
	return req
}

// MarshalOrderSubmission renders the exact body CreateOrder sends.
func MarshalOrderSubmission(sub *domain.OrderSubmission) ([]byte, error) {
	return json.MarshalIndent(newCreateOrderRequest(sub), "", "  ")
}

type orderDTO struct {
	ID              string                 `json:"id"`
	Status          wireStatus             `json:"status"`
	TotalAmount     decimal.Decimal        `json:"totalAmount"`
	CreatedAt       wireTime               `json:"createdAt"`
	UpdatedAt       wireTime               `json:"updatedAt"`
	Items           []domain.OrderLine     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

func (o orderDTO) toDomain() *domain.Order {
	return &domain.Order{
		ID:              o.ID,
		Status:          domain.OrderStatus(o.Status),
		TotalAmount:     o.TotalAmount,
		CreatedAt:       o.CreatedAt.Time,
		UpdatedAt:       o.UpdatedAt.Time,
		Items:           o.Items,
		ShippingAddress: o.ShippingAddress,
	}
}

type orderPageDTO struct {
	Orders     []orderDTO        `json:"orders"`
	Pagination domain.Pagination `json:"pagination"`
}

type trackingDTO struct {
	ID             string     `json:"id"`
	Status         wireStatus `json:"status"`
	TrackingNumber string     `json:"trackingNumber"`
	UpdatedAt      wireTime   `json:"updatedAt"`
}

type messageDTO struct {
	Message string `json:"message"`
}

type productDTO struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       decimal.Decimal       `json:"price"`
	Stock       int                   `json:"stock"`
	CategoryID  string                `json:"categoryId"`
	Images      []domain.ProductImage `json:"images"`
	CreatedAt   wireTime              `json:"createdAt"`
	UpdatedAt   wireTime              `json:"updatedAt"`
}

func (p productDTO) toDomain() *domain.Product {
	return &domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		Images:      p.Images,
		CreatedAt:   p.CreatedAt.Time,
		UpdatedAt:   p.UpdatedAt.Time,
	}
}

type productPageDTO struct {
	Products   []productDTO      `json:"products"`
	Pagination domain.Pagination `json:"pagination"`
}
