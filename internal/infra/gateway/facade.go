// Package gateway composes the store, tools, observer registry and stream
// server into the externally callable operations, and serves them over HTTP
// and MCP.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/catalog"
	"quotegw/internal/infra/tools"
)

// ObserverRegistry is the single supervisor slot.
type ObserverRegistry interface {
	Register(endpoint string) (domain.ObserverRegistration, error)
	Current() (string, bool)
}

type Options struct {
	Store    domain.Store
	Catalog  *catalog.Catalog
	Tools    *tools.Registry
	Quotes   *tools.QuoteService
	Observer ObserverRegistry
	Stream   http.Handler
	Logger   *zap.Logger
}

// Facade holds no state of its own beyond its collaborators.
type Facade struct {
	store    domain.Store
	catalog  *catalog.Catalog
	tools    *tools.Registry
	quotes   *tools.QuoteService
	observer ObserverRegistry
	stream   http.Handler
	logger   *zap.Logger
}

func NewFacade(opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.New(opts.Store, logger)
	}
	return &Facade{
		store:    opts.Store,
		catalog:  cat,
		tools:    opts.Tools,
		quotes:   opts.Quotes,
		observer: opts.Observer,
		stream:   opts.Stream,
		logger:   logger.Named("gateway"),
	}
}

// HealthStatus is the body of the health route.
type HealthStatus struct {
	Message string `json:"message"`
}

func (f *Facade) Manifest() domain.Manifest {
	ops := make([]string, len(domain.Operations))
	copy(ops, domain.Operations)
	return domain.Manifest{
		Name:       domain.ServiceName,
		Version:    domain.Version,
		Operations: ops,
	}
}

// Ping reports fixed status plus the current observer, if any.
func (f *Facade) Ping() domain.PingStatus {
	status := domain.PingStatus{
		Status:  "ok",
		Name:    domain.ServiceName,
		Version: domain.Version,
	}
	if endpoint, ok := f.observer.Current(); ok {
		status.Observer = &endpoint
	}
	return status
}

func (f *Facade) Health() HealthStatus {
	return HealthStatus{Message: domain.ServiceName + " is running"}
}

func (f *Facade) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return f.catalog.List(ctx)
}

func (f *Facade) ReadResource(ctx context.Context, key string) ([]byte, error) {
	return f.catalog.Read(ctx, key)
}

// ListStoreKeys returns every raw key, unclassified.
func (f *Facade) ListStoreKeys(ctx context.Context) ([]string, error) {
	keys, err := f.store.Keys(ctx, domain.WildcardPattern)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "gateway.ListStoreKeys", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (f *Facade) ListTools() []domain.ToolSpec {
	return f.tools.List()
}

func (f *Facade) InvokeTool(ctx context.Context, name string, args json.RawMessage) (domain.ToolResult, error) {
	return f.tools.Invoke(ctx, name, args)
}

func (f *Facade) RegisterObserver(endpoint string) (domain.ObserverRegistration, error) {
	return f.observer.Register(endpoint)
}

// InvokeAddQuote runs addQuote through the tool registry so every entry
// point shares validation, logging and metrics.
func (f *Facade) InvokeAddQuote(ctx context.Context, req domain.AddQuoteRequest) (domain.AddQuoteResult, error) {
	args, err := json.Marshal(map[string]string{"apiKey": req.Credential, "category": req.Category})
	if err != nil {
		return domain.AddQuoteResult{}, domain.E(domain.CodeInternal, "gateway.InvokeAddQuote", "encode arguments", err)
	}
	result, err := f.tools.Invoke(ctx, tools.AddQuoteName, args)
	if err != nil {
		return domain.AddQuoteResult{}, err
	}
	saved, ok := result.Data.(tools.SavedQuote)
	if !ok {
		return domain.AddQuoteResult{Outcome: domain.OutcomeNoMatch}, nil
	}
	return domain.AddQuoteResult{Outcome: domain.OutcomeSaved, Key: saved.Key, Quote: saved.Quote}, nil
}

func (f *Facade) ListQuotes(ctx context.Context) ([]domain.StoredQuote, error) {
	return f.quotes.ListQuotes(ctx)
}

// OpenStream returns the handler that serves push streams.
func (f *Facade) OpenStream() http.Handler {
	return f.stream
}
