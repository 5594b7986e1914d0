package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quotegw/internal/domain"
)

type PrometheusMetrics struct {
	toolDuration    *prometheus.HistogramVec
	fetchDuration   *prometheus.HistogramVec
	notifyDuration  *prometheus.HistogramVec
	storeOps        *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	activeStreams   prometheus.Gauge
	heartbeatsTotal prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotegw_tool_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"tool", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotegw_provider_fetch_duration_seconds",
				Help:    "Duration of quote provider requests in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		notifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotegw_observer_notify_duration_seconds",
				Help:    "Duration of detached observer pushes in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"result"},
		),
		storeOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotegw_store_operations_total",
				Help: "Total number of key-value store operations",
			},
			[]string{"op", "status"},
		),
		publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotegw_event_publishes_total",
				Help: "Total number of event publish attempts",
			},
			[]string{"publisher", "status"},
		),
		activeStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotegw_active_streams",
				Help: "Current number of open push streams",
			},
		),
		heartbeatsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quotegw_stream_heartbeats_total",
				Help: "Total number of liveness frames written to streams",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolCall(tool string, outcome domain.ToolOutcome, duration time.Duration) {
	p.toolDuration.WithLabelValues(tool, string(outcome)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveFetch(status domain.FetchStatus, duration time.Duration) {
	p.fetchDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveNotify(result domain.NotifyResult, duration time.Duration) {
	p.notifyDuration.WithLabelValues(string(result)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveStoreOp(op string, err error) {
	p.storeOps.WithLabelValues(op, statusLabel(err)).Inc()
}

func (p *PrometheusMetrics) ObservePublish(publisher string, err error) {
	p.publishes.WithLabelValues(publisher, statusLabel(err)).Inc()
}

func (p *PrometheusMetrics) AddActiveStreams(delta int) {
	p.activeStreams.Add(float64(delta))
}

func (p *PrometheusMetrics) ObserveHeartbeat() {
	p.heartbeatsTotal.Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
