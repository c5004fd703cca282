// Package metrics holds the Prometheus collectors for the cart protocol and the remote client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	CartMutations    *prometheus.CounterVec
	CartFetches      *prometheus.CounterVec
	OrderSubmissions *prometheus.CounterVec
	RemoteDuration   *prometheus.HistogramVec
	CartEvents       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and settlement result",
		}, []string{"op", "result"}),
		CartFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_fetches_total",
			Help:      "Remote cart reads by result",
		}, []string{"result"}),
		OrderSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submissions_total",
			Help:      "Order submissions by result",
		}, []string{"result"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		CartEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_events_total",
			Help:      "Cart events consumed by outcome",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.CartMutations, m.CartFetches, m.OrderSubmissions, m.RemoteDuration, m.CartEvents)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) Fetch(err error) {
	if m == nil {
		return
	}
	m.CartFetches.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) Submission(err error) {
	if m == nil {
		return
	}
	m.OrderSubmissions.WithLabelValues(result(err)).Inc()
}

// Remote records a request duration. status 0 means no response was received.
func (m *Metrics) Remote(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RemoteDuration.WithLabelValues(method, label).Observe(elapsed.Seconds())
}

func (m *Metrics) CartEvent(outcome string) {
	if m == nil {
		return
	}
	m.CartEvents.WithLabelValues(outcome).Inc()
}
