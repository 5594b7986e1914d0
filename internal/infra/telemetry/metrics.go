package telemetry

import (
	"time"

	"quotegw/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveToolCall(_ string, _ domain.ToolOutcome, _ time.Duration) {}

func (n *NoopMetrics) ObserveFetch(_ domain.FetchStatus, _ time.Duration) {}

func (n *NoopMetrics) ObserveNotify(_ domain.NotifyResult, _ time.Duration) {}

func (n *NoopMetrics) ObserveStoreOp(_ string, _ error) {}

func (n *NoopMetrics) ObservePublish(_ string, _ error) {}

func (n *NoopMetrics) AddActiveStreams(_ int) {}

func (n *NoopMetrics) ObserveHeartbeat() {}

var _ domain.Metrics = (*NoopMetrics)(nil)
