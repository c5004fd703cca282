// Package poller listens for server-published cart events and refetches the cart they concern.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "cart-events"

const (
	outcomeRefreshed = "refreshed"
	outcomeSkipped   = "skipped"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// readRetryDelay keeps a broken broker connection from spinning the loop.
const readRetryDelay = time.Second

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Refresher is the cart synchronizer's invalidate-and-refetch entry point.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Event is the payload of a cart event.
type Event struct {
	CartID string `json:"cart_id"`
	Type   string `json:"type"`
}

type Poller struct {
	reader  MessageReader
	cart    Refresher
	cartID  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPoller consumes topic with a consumer group private to cartID, so every installation sees every event.
func NewPoller(cart Refresher, cartID, topic string, log *slog.Logger, m *metrics.Metrics, brokers ...string) *Poller {
	if topic == "" {
		topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-" + cartID,
		MaxBytes: 10e6, // 10MB
	})
	return New(reader, cart, cartID, log, m)
}

func New(reader MessageReader, cart Refresher, cartID string, log *slog.Logger, m *metrics.Metrics) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		reader:  reader,
		cart:    cart,
		cartID:  cartID,
		logger:  log.With("component", "poller", "cart_id", cartID),
		metrics: m,
	}
}

// Run handles events until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Warn("error reading message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		p.metrics.CartEvent(p.handle(ctx, msg))
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", "error", err)
	}
}

func (p *Poller) handle(ctx context.Context, msg kafka.Message) string {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		p.logger.Warn("error parsing message", "offset", msg.Offset, "error", err)
		return outcomeInvalid
	}
	if ev.CartID == "" {
		p.logger.Warn("missing cart_id", "offset", msg.Offset)
		return outcomeInvalid
	}
	if ev.CartID != p.cartID {
		p.logger.Debug("event for another cart", "event_cart_id", ev.CartID)
		return outcomeSkipped
	}

	if err := p.cart.Refresh(ctx); err != nil {
		p.logger.Warn("cart refresh after event failed", "type", ev.Type, "error", err)
		return outcomeFailed
	}
	p.logger.Debug("cart refreshed after event", "type", ev.Type)
	return outcomeRefreshed
}
