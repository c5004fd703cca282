package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AssembleOrder builds the submission for exactly one attempt. Every call gets a new ID.
// Validation failures are returned before anything leaves the process.
func AssembleOrder(lines []domain.CartLine, address domain.ShippingAddress, method domain.PaymentMethod) (*domain.OrderSubmission, error) {
	address = trimAddress(address)
	if err := ValidateCheckout(address, method); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]domain.OrderLine, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		item := domain.OrderLine{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			UnitPrice:   l.Price,
			Quantity:    l.Quantity,
			ImageURL:    l.ImageURL,
		}
		items = append(items, item)
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return &domain.OrderSubmission{
		ID:              uuid.NewString(),
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   method,
		TotalAmount:     total,
	}, nil
}

// ValidateCheckout checks the address and payment method without touching the cart. Failures are
// a *ValidationError naming the fields.
func ValidateCheckout(address domain.ShippingAddress, method domain.PaymentMethod) error {
	var fields []string
	if err := validate.Struct(trimAddress(address)); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if !method.Valid() {
		fields = append(fields, "paymentMethod")
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		return &ValidationError{Fields: fields}
	}
	return nil
}

// whitespace-only fields count as missing
func trimAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.State),
		ZipCode:     strings.TrimSpace(a.ZipCode),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
	}
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, sub *domain.OrderSubmission) (*domain.Order, error)
}

type CheckoutService struct {
	api      OrderAPI
	store    *store.Store
	cart     *CartService
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	inFlight atomic.Bool
}

func NewCheckoutService(api OrderAPI, st *store.Store, cart *CartService, notifier Notifier, m *metrics.Metrics, log *slog.Logger) *CheckoutService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		api:      api,
		store:    st,
		cart:     cart,
		notifier: notifier,
		metrics:  m,
		logger:   log,
	}
}

// PlaceOrder submits the current cart once. A call made while another is in flight returns
// ErrSubmissionInProgress. On success the cart is cleared locally and remotely; a failure of
// that cleanup is reported but the order is still returned. On failure the cart is untouched.
func (s *CheckoutService) PlaceOrder(ctx context.Context, address domain.ShippingAddress, method domain.PaymentMethod) (*domain.Order, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer s.inFlight.Store(false)

	sub, err := AssembleOrder(s.store.Lines(), address, method)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.logger)
	remoteCtx := context.WithoutCancel(ctx)

	order, err := s.api.CreateOrder(remoteCtx, sub)
	s.metrics.Submission(err)
	if err != nil {
		subErr := &OrderSubmissionError{Err: err}
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			subErr.StatusCode = apiErr.StatusCode
			subErr.Message = apiErr.Message
			subErr.Errors = apiErr.Errors
		}
		log.Warn("order submission failed", "submission_id", sub.ID, "error", err)
		msg := subErr.Message
		if msg == "" {
			msg = "Order failed. Please try again."
		}
		s.notifier.Notify(ctx, failure(msg))
		return nil, subErr
	}

	log.Info("order placed", "order_id", order.ID, "submission_id", sub.ID, "total", sub.TotalAmount.String())
	s.notifier.Notify(ctx, Notification{Level: LevelSuccess, Title: "Order placed", Message: "Thank you for your purchase!"})

	s.store.Clear()
	if _, err := s.cart.ClearCart(remoteCtx); err != nil {
		log.Warn("cart cleanup after order failed", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// InFlight reports whether a submission is currently running.
func (s *CheckoutService) InFlight() bool {
	return s.inFlight.Load()
}
