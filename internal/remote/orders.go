package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/go-resty/resty/v2"
)

// CreateOrder submits sub once. sub.ID is sent as the idempotency key.
func (c *Client) CreateOrder(ctx context.Context, sub *domain.OrderSubmission) (*domain.Order, error) {
	resp, err := c.do(ctx, http.MethodPost, "/orders", func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").
			SetHeader(HeaderIdempotencyKey, sub.ID).
			SetBody(newCreateOrderRequest(sub))
	})
	if err != nil {
		return nil, err
	}

	// the server has created the order once it answered 2xx, so a body we cannot read is
	// not a failure: the caller must not resubmit
	var dto orderDTO
	if err := decode(resp, &dto); err != nil {
		logger.WithContext(ctx, c.logger).Warn("order accepted but response unreadable",
			"submission_id", sub.ID, "status", resp.StatusCode(), "error", err)
		return acceptedOrder(resp.Body(), sub), nil
	}
	return dto.toDomain(), nil
}

// acceptedOrder rebuilds an order from what was submitted, keeping the server id when the body has one.
func acceptedOrder(body []byte, sub *domain.OrderSubmission) *domain.Order {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &head)
	return &domain.Order{
		ID:              head.ID,
		Status:          domain.OrderStatusPending,
		TotalAmount:     sub.TotalAmount,
		Items:           sub.Items,
		ShippingAddress: sub.ShippingAddress,
	}
}

func (c *Client) ListOrders(ctx context.Context, q domain.OrderQuery) (*domain.OrderPage, error) {
	var dto orderPageDTO
	err := c.getJSON(ctx, "/orders", &dto, func(r *resty.Request) {
		if q.Page > 0 {
			r.SetQueryParam("page", strconv.Itoa(q.Page))
		}
		if q.PageSize > 0 {
			r.SetQueryParam("pageSize", strconv.Itoa(q.PageSize))
		}
		if q.Status != "" {
			r.SetQueryParam("status", q.Status.String())
		}
	})
	if err != nil {
		return nil, err
	}

	page := &domain.OrderPage{
		Orders:     make([]domain.Order, 0, len(dto.Orders)),
		Pagination: dto.Pagination,
	}
	for _, o := range dto.Orders {
		page.Orders = append(page.Orders, *o.toDomain())
	}
	return page, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var dto orderDTO
	err := c.getJSON(ctx, "/orders/{orderId}", &dto, func(r *resty.Request) {
		r.SetPathParam("orderId", orderID)
	})
	if err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// CancelOrder returns the server's confirmation message.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (string, error) {
	resp, err := c.do(ctx, http.MethodPut, "/orders/{orderId}/cancel", func(r *resty.Request) {
		r.SetPathParam("orderId", orderID)
	})
	if err != nil {
		return "", err
	}

	var msg messageDTO
	if err := decode(resp, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

func (c *Client) GetTracking(ctx context.Context, orderID string) (*domain.TrackingInfo, error) {
	var dto trackingDTO
	err := c.getJSON(ctx, "/orders/{orderId}/tracking", &dto, func(r *resty.Request) {
		r.SetPathParam("orderId", orderID)
	})
	if err != nil {
		return nil, err
	}
	return &domain.TrackingInfo{
		ID:             dto.ID,
		Status:         string(dto.Status),
		TrackingNumber: dto.TrackingNumber,
		UpdatedAt:      dto.UpdatedAt.Time,
	}, nil
}
