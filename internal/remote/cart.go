package remote

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-resty/resty/v2"
)

// cartRequest scopes a request to cartID: path segment and X-Cart-ID header.
func cartRequest(cartID string, productID string, body any) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetHeader(HeaderCartID, cartID).
			SetPathParam("cartId", cartID)
		if productID != "" {
			r.SetPathParam("productId", productID)
		}
		if body != nil {
			r.SetHeader("Content-Type", "application/json").SetBody(body)
		}
	}
}

func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	var dto cartDTO
	if err := c.getJSON(ctx, "/cart/{cartId}", &dto, cartRequest(cartID, "", nil)); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/{cartId}/items",
		cartRequest(cartID, "", addItemRequest{ProductID: productID, Quantity: quantity}))
	return err
}

func (c *Client) UpdateItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPut, "/cart/{cartId}/items/{productId}",
		cartRequest(cartID, productID, updateItemRequest{Quantity: quantity}))
	return err
}

func (c *Client) RemoveItem(ctx context.Context, cartID, productID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/{cartId}/items/{productId}",
		cartRequest(cartID, productID, nil))
	return err
}

func (c *Client) ClearCart(ctx context.Context, cartID string) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/{cartId}/clear", cartRequest(cartID, "", nil))
	return err
}
