package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/events"
	"quotegw/internal/infra/idgen"
	"quotegw/internal/infra/telemetry"
)

const AddQuoteName = "addQuote"

type QuoteServiceOptions struct {
	Fetcher   domain.Fetcher
	Store     domain.Store
	Notifier  domain.Notifier
	Publisher domain.Publisher
	Keys      domain.KeyGenerator
	Clock     domain.Clock
	Version   string
	Logger    *zap.Logger
}

// QuoteService fetches, stamps and persists quotes, then signals observers.
type QuoteService struct {
	fetcher   domain.Fetcher
	store     domain.Store
	notifier  domain.Notifier
	publisher domain.Publisher
	keys      domain.KeyGenerator
	clock     domain.Clock
	version   string
	logger    *zap.Logger
}

func NewQuoteService(opts QuoteServiceOptions) *QuoteService {
	keys := opts.Keys
	if keys == nil {
		keys = idgen.NewQuoteKeys(false)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	version := opts.Version
	if version == "" {
		version = domain.Version
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		fetcher:   opts.Fetcher,
		store:     opts.Store,
		notifier:  opts.Notifier,
		publisher: publisher,
		keys:      keys,
		clock:     clock,
		version:   version,
		logger:    logger.Named("quotes"),
	}
}

// AddQuote persists one provider quote. A provider with nothing to offer
// yields OutcomeNoMatch and no write. The observer is signalled only after
// the write succeeded, and its outcome never reaches the caller.
func (s *QuoteService) AddQuote(ctx context.Context, req domain.AddQuoteRequest) (domain.AddQuoteResult, error) {
	const op = "addQuote"
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return domain.AddQuoteResult{}, domain.E(domain.CodeInvalidArgument, op, "apiKey is required", domain.ErrEmptyCredential)
	}

	item, err := s.fetcher.FetchOne(ctx, credential, domain.FetchOptions{Category: strings.TrimSpace(req.Category)})
	if errors.Is(err, domain.ErrQuoteNotFound) {
		s.logger.Info("no quote matched", telemetry.EventField(telemetry.EventQuoteNoMatch), zap.String("category", req.Category))
		return domain.AddQuoteResult{Outcome: domain.OutcomeNoMatch}, nil
	}
	if err != nil {
		return domain.AddQuoteResult{}, domain.Wrap(domain.CodeUpstream, op, err)
	}

	createdAt := s.clock()
	key, err := s.keys.QuoteKey(createdAt)
	if err != nil {
		return domain.AddQuoteResult{}, domain.E(domain.CodeInternal, op, "derive quote key", err)
	}
	quote := domain.NewQuote(key, item, createdAt, s.version)
	value, err := json.Marshal(quote)
	if err != nil {
		return domain.AddQuoteResult{}, domain.E(domain.CodeInternal, op, "encode quote", err)
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return domain.AddQuoteResult{}, domain.E(domain.CodePersist, op, "persist quote", err)
	}
	s.logger.Info("quote saved", telemetry.EventField(telemetry.EventQuoteSaved), telemetry.KeyField(key))

	event := domain.Event{Type: domain.EventQuoteAdded, Key: key, Quote: quote}
	if s.notifier != nil {
		s.notifier.Notify(event)
	}
	// the caller may hang up once the quote is durable
	_ = s.publisher.Publish(context.WithoutCancel(ctx), event)

	return domain.AddQuoteResult{Outcome: domain.OutcomeSaved, Key: key, Quote: quote}, nil
}

// ListQuotes returns every persisted quote with its key. Keys that vanish or
// fail to decode between enumeration and read are skipped.
func (s *QuoteService) ListQuotes(ctx context.Context) ([]domain.StoredQuote, error) {
	const op = "listQuotes"
	keys, err := s.store.Keys(ctx, domain.QuoteKeyPrefix+domain.WildcardPattern)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, op, err)
	}
	quotes := make([]domain.StoredQuote, 0, len(keys))
	for _, key := range keys {
		value, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, domain.Wrap(domain.CodeUnavailable, op, err)
		}
		if !ok {
			continue
		}
		quote := &domain.Quote{Key: key}
		if err := json.Unmarshal(value, quote); err != nil {
			s.logger.Warn("skipping undecodable quote", telemetry.KeyField(key), zap.Error(err))
			continue
		}
		quotes = append(quotes, domain.StoredQuote{Key: key, Quote: quote})
	}
	return quotes, nil
}

// AddQuoteTool exposes QuoteService.AddQuote through the tool contract.
type AddQuoteTool struct {
	service *QuoteService
}

func NewAddQuoteTool(service *QuoteService) *AddQuoteTool {
	return &AddQuoteTool{service: service}
}

type addQuoteArgs struct {
	APIKey   string `json:"apiKey"`
	Category string `json:"category"`
}

// SavedQuote is the data payload of a successful addQuote call.
type SavedQuote struct {
	Saved bool          `json:"saved"`
	Key   string        `json:"key"`
	Quote *domain.Quote `json:"quote"`
}

func (t *AddQuoteTool) Spec() domain.ToolSpec {
	minLength := 1
	return domain.ToolSpec{
		Name:        AddQuoteName,
		Description: "Fetch one quote from the provider with the caller's API key, store it under quotes:<timestamp> and notify the registered observer.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"apiKey": {
					Type:        "string",
					Description: "Provider API key. Sent with this request only.",
					MinLength:   &minLength,
				},
				"category": {
					Type:        "string",
					Description: "Optional provider category, passed through untouched.",
				},
			},
			Required: []string{"apiKey"},
		},
	}
}

func (t *AddQuoteTool) Invoke(ctx context.Context, raw json.RawMessage) (domain.ToolResult, error) {
	var args addQuoteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		err = domain.E(domain.CodeInvalidArgument, AddQuoteName, "arguments must be a json object", err)
		return domain.ToolResult{Error: err.Error(), Outcome: domain.ToolOutcomeInvalid}, err
	}

	result, err := t.service.AddQuote(ctx, domain.AddQuoteRequest{Credential: args.APIKey, Category: args.Category})
	if err != nil {
		return domain.ToolResult{Error: err.Error(), Outcome: outcomeFor(domain.ToolResult{}, err)}, err
	}
	if !result.Saved() {
		return domain.ToolResult{Success: true, Message: "no quote matched", Outcome: domain.ToolOutcomeNoMatch}, nil
	}
	return domain.ToolResult{
		Success: true,
		Data:    SavedQuote{Saved: true, Key: result.Key, Quote: result.Quote},
		Outcome: domain.ToolOutcomeSaved,
	}, nil
}

var _ domain.Tool = (*AddQuoteTool)(nil)
