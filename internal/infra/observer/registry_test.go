package observer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

type recordingMetrics struct {
	telemetry.NoopMetrics
	mu      sync.Mutex
	results []domain.NotifyResult
}

func (m *recordingMetrics) ObserveNotify(result domain.NotifyResult, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func (m *recordingMetrics) snapshot() []domain.NotifyResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.NotifyResult(nil), m.results...)
}

func TestRegistry_RegisterLastWriteWins(t *testing.T) {
	reg := NewRegistry(Options{})

	_, ok := reg.Current()
	require.False(t, ok)

	got, err := reg.Register("http://127.0.0.1:9000/a")
	require.NoError(t, err)
	assert.Equal(t, domain.ObserverRegistration{Registered: true, Endpoint: "http://127.0.0.1:9000/a"}, got)

	current, ok := reg.Current()
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9000/a", current)

	_, err = reg.Register(" https://observer.example/hook ")
	require.NoError(t, err)
	current, _ = reg.Current()
	assert.Equal(t, "https://observer.example/hook", current)
}

func TestRegistry_RegisterRejectsInvalidAndKeepsSlot(t *testing.T) {
	reg := NewRegistry(Options{})
	_, err := reg.Register("http://127.0.0.1:9000/a")
	require.NoError(t, err)

	for _, endpoint := range []string{"", "   ", "not a url", "ftp://host/x", "/relative"} {
		_, err := reg.Register(endpoint)
		require.Error(t, err, endpoint)
		assert.True(t, domain.IsCode(err, domain.CodeInvalidArgument), endpoint)
		assert.ErrorIs(t, err, domain.ErrInvalidEndpoint)

		current, ok := reg.Current()
		require.True(t, ok)
		assert.Equal(t, "http://127.0.0.1:9000/a", current)
	}
}

func TestRegistry_NotifyWithoutObserverIsNoop(t *testing.T) {
	metrics := &recordingMetrics{}
	reg := NewRegistry(Options{Metrics: metrics})

	reg.Notify(domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:1"})
	require.NoError(t, reg.Drain(context.Background()))
	assert.Empty(t, metrics.snapshot())
}

func TestRegistry_NotifyDeliversEvent(t *testing.T) {
	received := make(chan domain.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var event domain.Event
		assert.NoError(t, json.Unmarshal(body, &event))
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	reg := NewRegistry(Options{Metrics: metrics})
	_, err := reg.Register(server.URL)
	require.NoError(t, err)

	quote := domain.NewQuote("quotes:1700000000000", domain.QuoteItem{"quote": json.RawMessage(`"hi"`)}, time.UnixMilli(1700000000000), "1.0.0")
	reg.Notify(domain.Event{Type: domain.EventQuoteAdded, Key: quote.Key, Quote: quote})

	select {
	case event := <-received:
		assert.Equal(t, domain.EventQuoteAdded, event.Type)
		assert.Equal(t, "quotes:1700000000000", event.Key)
		require.NotNil(t, event.Quote)
		assert.Equal(t, int64(1700000000000), event.Quote.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not receive event")
	}

	require.NoError(t, reg.Drain(context.Background()))
	assert.Equal(t, []domain.NotifyResult{domain.NotifyResultDelivered}, metrics.snapshot())
}

func TestRegistry_NotifyFailuresAreSwallowed(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer rejecting.Close()

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		endpoint string
		want     domain.NotifyResult
	}{
		{name: "non-2xx", endpoint: rejecting.URL, want: domain.NotifyResultRejected},
		{name: "timeout", endpoint: slow.URL, want: domain.NotifyResultTimeout},
		{name: "unreachable", endpoint: closedURL, want: domain.NotifyResultFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			reg := NewRegistry(Options{Timeout: 100 * time.Millisecond, Metrics: metrics})
			_, err := reg.Register(tt.endpoint)
			require.NoError(t, err)

			start := time.Now()
			reg.Notify(domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:1"})
			assert.Less(t, time.Since(start), 50*time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, reg.Drain(ctx))
			assert.Equal(t, []domain.NotifyResult{tt.want}, metrics.snapshot())

			current, ok := reg.Current()
			require.True(t, ok)
			assert.Equal(t, tt.endpoint, current)
		})
	}
}

func TestRegistry_NotifyAfterDrainIsDropped(t *testing.T) {
	var hits sync.WaitGroup
	var mu sync.Mutex
	count := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	reg := NewRegistry(Options{Metrics: metrics})
	_, err := reg.Register(server.URL)
	require.NoError(t, err)

	// writers racing a drain must not trip the WaitGroup
	for range 8 {
		hits.Add(1)
		go func() {
			defer hits.Done()
			for range 20 {
				reg.Notify(domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:1"})
			}
		}()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, reg.Drain(ctx))
	hits.Wait()
	require.NoError(t, reg.Drain(ctx))

	before := len(metrics.snapshot())
	reg.Notify(domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:2"})
	require.NoError(t, reg.Drain(ctx))
	assert.Len(t, metrics.snapshot(), before)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, count)
}
