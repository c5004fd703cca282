package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	messages chan kafka.Message
	errs     chan error
	closed   atomic.Bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		messages: make(chan kafka.Message, 10),
		errs:     make(chan error, 10),
	}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case err := <-r.errs:
		return kafka.Message{}, err
	case m := <-r.messages:
		return m, nil
	}
}

func (r *fakeReader) Close() error {
	r.closed.Store(true)
	return nil
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingRefresher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func startPoller(t *testing.T, cart Refresher) (*fakeReader, *metrics.Metrics) {
	t.Helper()
	reader := newFakeReader()
	m := metrics.New(prometheus.NewRegistry())
	p := New(reader, cart, "cart-1", nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		p.Close()
		assert.True(t, reader.closed.Load())
	})
	return reader, m
}

func TestPoller_RefreshesOnMatchingEvent(t *testing.T) {
	cart := &countingRefresher{}
	reader, m := startPoller(t, cart)

	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-1","type":"updated"}`)}

	require.Eventually(t, func() bool { return cart.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.CartEvents.WithLabelValues(outcomeRefreshed)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_SkipsOtherCartsAndGarbage(t *testing.T) {
	cart := &countingRefresher{}
	reader, m := startPoller(t, cart)

	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-2","type":"updated"}`)}
	reader.messages <- kafka.Message{Value: []byte(`not json`)}
	reader.messages <- kafka.Message{Value: []byte(`{"type":"updated"}`)}
	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-1","type":"cleared"}`)}

	require.Eventually(t, func() bool { return cart.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.CartEvents.WithLabelValues(outcomeInvalid)) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartEvents.WithLabelValues(outcomeSkipped)))
}

func TestPoller_RefreshFailureKeepsRunning(t *testing.T) {
	cart := &countingRefresher{err: errors.New("offline")}
	reader, m := startPoller(t, cart)

	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-1"}`)}
	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-1"}`)}

	require.Eventually(t, func() bool { return cart.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.CartEvents.WithLabelValues(outcomeFailed)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_ReadErrorRetries(t *testing.T) {
	cart := &countingRefresher{}
	reader, _ := startPoller(t, cart)

	reader.errs <- errors.New("broker gone")
	reader.messages <- kafka.Message{Value: []byte(`{"cart_id":"cart-1"}`)}

	require.Eventually(t, func() bool { return cart.count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	p := New(newFakeReader(), &countingRefresher{}, "cart-1", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
