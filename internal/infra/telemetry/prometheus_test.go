package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
)

func TestPrometheusMetrics_RegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveToolCall("addQuote", domain.ToolOutcomeSaved, 10*time.Millisecond)
	m.ObserveFetch(domain.FetchStatusSuccess, 20*time.Millisecond)
	m.ObserveNotify(domain.NotifyResultDelivered, 5*time.Millisecond)
	m.ObserveStoreOp("set", nil)
	m.ObservePublish("stream", nil)
	m.AddActiveStreams(1)
	m.ObserveHeartbeat()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}

	assert.ElementsMatch(t, []string{
		"quotegw_tool_duration_seconds",
		"quotegw_provider_fetch_duration_seconds",
		"quotegw_observer_notify_duration_seconds",
		"quotegw_store_operations_total",
		"quotegw_event_publishes_total",
		"quotegw_active_streams",
		"quotegw_stream_heartbeats_total",
	}, names)
}

func TestPrometheusMetrics_StatusLabels(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveStoreOp("get", nil)
	m.ObserveStoreOp("get", errors.New("boom"))
	m.ObserveStoreOp("get", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("get", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.storeOps.WithLabelValues("get", "error")))
}

func TestPrometheusMetrics_ActiveStreams(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.AddActiveStreams(1)
	m.AddActiveStreams(1)
	m.AddActiveStreams(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeStreams))
}
