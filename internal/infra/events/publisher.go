// Package events fans gateway events out to in-process streams and external
// buses. Publishing is best effort and never fails the triggering operation.
package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

// Target names a publisher for logs and metrics.
type Target struct {
	Name      string
	Publisher domain.Publisher
}

// Fanout publishes each event to every target. A failing target is logged
// and counted; the remaining targets still receive the event.
type Fanout struct {
	mu      sync.RWMutex
	targets []Target
	logger  *zap.Logger
	metrics domain.Metrics
}

func NewFanout(logger *zap.Logger, metrics domain.Metrics, targets ...Target) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	kept := make([]Target, 0, len(targets))
	for _, target := range targets {
		if target.Publisher != nil {
			kept = append(kept, target)
		}
	}
	return &Fanout{targets: kept, logger: logger.Named("events"), metrics: metrics}
}

// Attach adds a target after construction. Surfaces that depend on the
// services publishing into the fan-out join this way.
func (f *Fanout) Attach(target Target) {
	if target.Publisher == nil {
		return
	}
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.mu.Unlock()
}

func (f *Fanout) snapshot() []Target {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Target(nil), f.targets...)
}

func (f *Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, target := range f.snapshot() {
		err := target.Publisher.Publish(ctx, event)
		f.metrics.ObservePublish(target.Name, err)
		if err != nil {
			f.logger.Warn("publish failed",
				telemetry.EventField(telemetry.EventPublishFailed),
				zap.String("publisher", target.Name),
				telemetry.KeyField(event.Key),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, target := range f.snapshot() {
		if err := target.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.Publisher = NoopPublisher{}
	_ domain.Publisher = (*Fanout)(nil)
)
