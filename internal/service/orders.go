package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

type OrderHistoryAPI interface {
	ListOrders(ctx context.Context, q domain.OrderQuery) (*domain.OrderPage, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (string, error)
	GetTracking(ctx context.Context, orderID string) (*domain.TrackingInfo, error)
}

type OrderService struct {
	api      OrderHistoryAPI
	notifier Notifier
	logger   *slog.Logger
}

func NewOrderService(api OrderHistoryAPI, notifier Notifier, log *slog.Logger) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{api: api, notifier: notifier, logger: log}
}

func (s *OrderService) List(ctx context.Context, q domain.OrderQuery) (*domain.OrderPage, error) {
	page, err := s.api.ListOrders(ctx, q)
	if err != nil {
		return nil, &RemoteFetchError{Resource: "orders", Err: err}
	}
	return page, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &ValidationError{Fields: []string{"orderId"}}
	}
	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, &RemoteFetchError{Resource: "order " + orderID, Err: err}
	}
	return order, nil
}

// Cancel asks the server to cancel orderID and returns its confirmation message.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (string, error) {
	if strings.TrimSpace(orderID) == "" {
		return "", &ValidationError{Fields: []string{"orderId"}}
	}
	msg, err := s.api.CancelOrder(context.WithoutCancel(ctx), orderID)
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("order cancel failed", "order_id", orderID, "error", err)
		s.notifier.Notify(ctx, failure("Failed to cancel order"))
		return "", &RemoteMutationError{Op: "cancel order " + orderID, Err: err}
	}
	if msg == "" {
		msg = "Order cancelled"
	}
	s.notifier.Notify(ctx, success(msg))
	return msg, nil
}

func (s *OrderService) Tracking(ctx context.Context, orderID string) (*domain.TrackingInfo, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &ValidationError{Fields: []string{"orderId"}}
	}
	info, err := s.api.GetTracking(ctx, orderID)
	if err != nil {
		return nil, &RemoteFetchError{Resource: "tracking " + orderID, Err: err}
	}
	return info, nil
}
