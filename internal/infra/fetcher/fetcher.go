// Package fetcher calls the external quote provider.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

const (
	credentialHeader = "X-Api-Key"
	maxBodyBytes     = 1 << 20
	maxErrorSnippet  = 256
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// HTTPFetcher issues one provider request per call. There is no caching and
// no retry; the credential travels with each call.
type HTTPFetcher struct {
	baseURL *url.URL
	client  *http.Client
	logger  *zap.Logger
	metrics domain.Metrics
}

func New(opts Options) (*HTTPFetcher, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = domain.DefaultFetcherBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid provider base url %q", raw)
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Duration(domain.DefaultFetcherTimeoutSeconds) * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &HTTPFetcher{
		baseURL: base,
		client:  client,
		logger:  logger.Named("fetcher"),
		metrics: metrics,
	}, nil
}

func (f *HTTPFetcher) FetchOne(ctx context.Context, credential string, opts domain.FetchOptions) (domain.QuoteItem, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, domain.Wrap(domain.CodeInvalidArgument, "fetcher.fetch", domain.ErrEmptyCredential)
	}
	start := time.Now()
	item, err := f.fetch(ctx, credential, opts)
	status := domain.FetchStatusSuccess
	switch {
	case errors.Is(err, domain.ErrQuoteNotFound):
		status = domain.FetchStatusNotFound
	case err != nil:
		status = domain.FetchStatusError
	}
	duration := time.Since(start)
	f.metrics.ObserveFetch(status, duration)
	if err != nil && status == domain.FetchStatusError {
		f.logger.Warn("provider fetch failed", telemetry.DurationField(duration), zap.Error(err))
	}
	return item, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, credential string, opts domain.FetchOptions) (domain.QuoteItem, error) {
	target := *f.baseURL
	if category := strings.TrimSpace(opts.Category); category != "" {
		query := target.Query()
		query.Set("category", category)
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, domain.E(domain.CodeUpstream, "fetcher.fetch", "build request", err)
	}
	req.Header.Set(credentialHeader, credential)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.E(domain.CodeUpstream, "fetcher.fetch", "provider request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.E(domain.CodeUpstream, "fetcher.fetch", "read provider response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := domain.E(domain.CodeUpstream, "fetcher.fetch",
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, snippet(body)), nil)
		upstreamErr.Meta = map[string]string{"status": strconv.Itoa(resp.StatusCode)}
		upstreamErr.Retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, upstreamErr
	}
	return decodeItem(body)
}

// decodeItem accepts either an array of items (first wins) or a single object.
// An empty body or empty array is the not-found signal.
func decodeItem(body []byte) (domain.QuoteItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, domain.ErrQuoteNotFound
	}
	switch trimmed[0] {
	case '[':
		var items []domain.QuoteItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, domain.E(domain.CodeUpstream, "fetcher.decode", "decode provider array", err)
		}
		for _, item := range items {
			if len(item) > 0 {
				return item, nil
			}
		}
		return nil, domain.ErrQuoteNotFound
	case '{':
		var item domain.QuoteItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, domain.E(domain.CodeUpstream, "fetcher.decode", "decode provider object", err)
		}
		if len(item) == 0 {
			return nil, domain.ErrQuoteNotFound
		}
		return item, nil
	default:
		return nil, domain.E(domain.CodeUpstream, "fetcher.decode", "unexpected provider payload: "+snippet(trimmed), nil)
	}
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorSnippet {
		return text[:maxErrorSnippet] + "..."
	}
	return text
}

var _ domain.Fetcher = (*HTTPFetcher)(nil)
