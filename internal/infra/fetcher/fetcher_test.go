package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *HTTPFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f, err := New(Options{BaseURL: srv.URL + "/v1/quotes"})
	require.NoError(t, err)
	return f
}

func TestFetchOneSendsCredentialAndCategory(t *testing.T) {
	var gotKey, gotCategory string
	f := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotCategory = r.URL.Query().Get("category")
		_, _ = w.Write([]byte(`[{"quote":"Stay hungry.","author":"Jobs","category":"inspirational"}]`))
	})

	item, err := f.FetchOne(context.Background(), "secret-1", domain.FetchOptions{Category: "inspirational"})
	require.NoError(t, err)
	require.Equal(t, "secret-1", gotKey)
	require.Equal(t, "inspirational", gotCategory)

	var author string
	require.NoError(t, json.Unmarshal(item["author"], &author))
	require.Equal(t, "Jobs", author)
}

func TestFetchOneEmptyResultIsNotFound(t *testing.T) {
	for _, body := range []string{"", "[]", "null", "{}"} {
		t.Run(body, func(t *testing.T) {
			f := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := f.FetchOne(context.Background(), "k", domain.FetchOptions{})
			require.ErrorIs(t, err, domain.ErrQuoteNotFound)
		})
	}
}

func TestFetchOneNon2xxIsUpstreamError(t *testing.T) {
	f := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Invalid API Key."}`, http.StatusBadRequest)
	})

	_, err := f.FetchOne(context.Background(), "bad", domain.FetchOptions{})
	require.True(t, domain.IsCode(err, domain.CodeUpstream))
	require.Contains(t, err.Error(), "Invalid API Key")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "400", domainErr.Meta["status"])
	require.False(t, domainErr.Retryable)
}

func TestFetchOneTransportFailureIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f, err := New(Options{BaseURL: url})
	require.NoError(t, err)

	_, err = f.FetchOne(context.Background(), "k", domain.FetchOptions{})
	require.True(t, domain.IsCode(err, domain.CodeUpstream))
}

func TestFetchOneEmptyCredentialMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	f := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})

	_, err := f.FetchOne(context.Background(), "  ", domain.FetchOptions{})
	require.True(t, domain.IsCode(err, domain.CodeInvalidArgument))
	require.Zero(t, calls.Load())
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/v1/quotes"})
	require.Error(t, err)
}
