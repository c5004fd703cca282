package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("add", nil)
		m.Fetch(errors.New("x"))
		m.Submission(nil)
		m.Remote("GET", 200, time.Millisecond)
		m.CartEvent("refreshed")
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Mutation("add", nil)
	m.Mutation("add", nil)
	m.Mutation("remove", errors.New("boom"))
	m.Fetch(nil)
	m.Submission(errors.New("rejected"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("remove", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartFetches.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderSubmissions.WithLabelValues(ResultFailure)))
}

func TestRemoteHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Remote("GET", 200, 10*time.Millisecond)
	m.Remote("POST", 0, time.Second)

	count, err := testutil.GatherAndCount(reg, "storefront_remote_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
