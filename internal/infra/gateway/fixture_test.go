package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
	"quotegw/internal/infra/events"
	"quotegw/internal/infra/fetcher"
	"quotegw/internal/infra/observer"
	"quotegw/internal/infra/store"
	"quotegw/internal/infra/stream"
	"quotegw/internal/infra/tools"
)

// fakeProvider answers like the quote provider: an empty array for the
// "none" category and a 500 for the "boom" key.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Header.Get("X-Api-Key") == "boom":
			http.Error(w, "provider exploded", http.StatusInternalServerError)
		case r.URL.Query().Get("category") == "none":
			_, _ = w.Write([]byte(`[]`))
		default:
			_, _ = w.Write([]byte(`[{"quote":"Stay hungry.","author":"Steve Jobs","category":"inspirational"}]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	store    *store.MemoryStore
	hub      *stream.Hub
	observer *observer.Registry
	facade   *Facade
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := fakeProvider(t)
	f, err := fetcher.New(fetcher.Options{BaseURL: provider.URL})
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	hub := newTestHub()
	obs := observer.NewRegistry(observer.Options{Timeout: time.Second})
	quotes := tools.NewQuoteService(tools.QuoteServiceOptions{
		Fetcher:   f,
		Store:     mem,
		Notifier:  obs,
		Publisher: events.NewFanout(nil, nil, events.Target{Name: "stream", Publisher: hub}),
	})
	registry := tools.NewRegistry(nil, nil)
	require.NoError(t, registry.Register(tools.NewAddQuoteTool(quotes)))

	facade := NewFacade(Options{
		Store:    mem,
		Tools:    registry,
		Quotes:   quotes,
		Observer: obs,
		Stream:   stream.NewServer(hub, stream.ServerOptions{Heartbeat: 50 * time.Millisecond, DeliverEvents: true}),
	})
	t.Cleanup(func() {
		_ = hub.Close()
	})
	return &fixture{
		store:    mem,
		hub:      hub,
		observer: obs,
		facade:   facade,
		handler:  facade.Handler(HTTPOptions{}),
	}
}

func newTestHub() *stream.Hub {
	return stream.NewHub(domain.DefaultStreamBufferSize, nil)
}
