// Package observer holds the single supervisor endpoint and pushes write
// events to it on a detached goroutine.
package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

type Options struct {
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Registry is a last-write-wins slot for one observer endpoint.
type Registry struct {
	endpoint atomic.Pointer[string]
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	metrics  domain.Metrics

	// mu guards draining so no push is added once Drain has started waiting.
	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

func NewRegistry(opts Options) *Registry {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultNotifyTimeoutSeconds) * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Registry{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("observer"),
		metrics: metrics,
	}
}

// Register replaces the current endpoint. Empty or non-http(s) endpoints are
// rejected and leave the slot unchanged.
func (r *Registry) Register(endpoint string) (domain.ObserverRegistration, error) {
	normalized, err := ValidateEndpoint(endpoint)
	if err != nil {
		return domain.ObserverRegistration{}, err
	}
	previous := r.endpoint.Swap(&normalized)
	if previous != nil && *previous != normalized {
		r.logger.Info("observer replaced",
			telemetry.EventField(telemetry.EventObserverReplaced),
			telemetry.EndpointField(normalized),
			zap.String("previous", *previous),
		)
	} else {
		r.logger.Info("observer registered", telemetry.EndpointField(normalized))
	}
	return domain.ObserverRegistration{Registered: true, Endpoint: normalized}, nil
}

// Current returns the registered endpoint, if any.
func (r *Registry) Current() (string, bool) {
	ptr := r.endpoint.Load()
	if ptr == nil {
		return "", false
	}
	return *ptr, true
}

// Notify pushes event to the current endpoint without blocking the caller.
// The outcome is logged and counted; it is never retried.
func (r *Registry) Notify(event domain.Event) {
	endpoint, ok := r.Current()
	if !ok {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("encode event failed", zap.Error(err), telemetry.KeyField(event.Key))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		r.logger.Debug("observer draining, event dropped", telemetry.KeyField(event.Key))
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.push(endpoint, event, body)
	}()
}

func (r *Registry) push(endpoint string, event domain.Event, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	result, err := r.post(ctx, endpoint, body)
	duration := time.Since(start)
	r.metrics.ObserveNotify(result, duration)

	fields := []zap.Field{
		telemetry.EndpointField(endpoint),
		telemetry.KeyField(event.Key),
		zap.String("type", string(event.Type)),
		telemetry.DurationField(duration),
	}
	if err != nil {
		fields = append(fields, telemetry.EventField(telemetry.EventNotifyFailed), zap.String("result", string(result)), zap.Error(err))
		r.logger.Warn("observer notify failed", fields...)
		return
	}
	r.logger.Info("observer notified", append(fields, telemetry.EventField(telemetry.EventNotifyDelivered))...)
}

func (r *Registry) post(ctx context.Context, endpoint string, body []byte) (domain.NotifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.NotifyResultFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.NotifyResultTimeout, err
		}
		return domain.NotifyResultFailed, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NotifyResultRejected, errors.New("observer responded " + resp.Status)
	}
	return domain.NotifyResultDelivered, nil
}

// Drain stops accepting pushes and waits for in-flight ones to finish or
// ctx to end.
func (r *Registry) Drain(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ValidateEndpoint trims raw and checks it is an absolute http(s) URL.
func ValidateEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", domain.E(domain.CodeInvalidArgument, "observer.Register", "endpoint is required", domain.ErrInvalidEndpoint)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", domain.E(domain.CodeInvalidArgument, "observer.Register", "endpoint must be an absolute http(s) url", domain.ErrInvalidEndpoint)
	}
	return endpoint, nil
}

var _ domain.Notifier = (*Registry)(nil)
