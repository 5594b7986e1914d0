package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// ResourceKind classifies a stored key by its namespace.
type ResourceKind string

const (
	ResourceKindQuote   ResourceKind = "quote"
	ResourceKindUnknown ResourceKind = "unknown"
)

// Resource is a read-only view over one stored key. It is derived on demand
// and never persisted.
type Resource struct {
	Key  string       `json:"key"`
	Kind ResourceKind `json:"kind"`
}

// QuoteItem is a single provider item. Its fields are passed through opaquely.
type QuoteItem map[string]json.RawMessage

// Quote is the persisted unit produced by the addQuote tool. Key is carried
// alongside the record and is not part of the stored value.
type Quote struct {
	Key       string
	Fields    QuoteItem
	Timestamp int64
	Version   string
}

const (
	quoteFieldTimestamp = "timestamp"
	quoteFieldVersion   = "version"
)

// NewQuote stamps item with the creation time and protocol version.
func NewQuote(key string, item QuoteItem, createdAt time.Time, version string) *Quote {
	fields := make(QuoteItem, len(item))
	maps.Copy(fields, item)
	delete(fields, quoteFieldTimestamp)
	delete(fields, quoteFieldVersion)
	return &Quote{
		Key:       key,
		Fields:    fields,
		Timestamp: createdAt.UnixMilli(),
		Version:   version,
	}
}

func (q Quote) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(q.Fields)+2)
	maps.Copy(out, q.Fields)
	ts, err := json.Marshal(q.Timestamp)
	if err != nil {
		return nil, err
	}
	version, err := json.Marshal(q.Version)
	if err != nil {
		return nil, err
	}
	out[quoteFieldTimestamp] = ts
	out[quoteFieldVersion] = version
	return json.Marshal(out)
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("quote record must be a json object")
	}
	var decoded Quote
	if ts, ok := raw[quoteFieldTimestamp]; ok {
		if err := json.Unmarshal(ts, &decoded.Timestamp); err != nil {
			return fmt.Errorf("decode quote timestamp: %w", err)
		}
		delete(raw, quoteFieldTimestamp)
	}
	if version, ok := raw[quoteFieldVersion]; ok {
		if err := json.Unmarshal(version, &decoded.Version); err != nil {
			return fmt.Errorf("decode quote version: %w", err)
		}
		delete(raw, quoteFieldVersion)
	}
	decoded.Key = q.Key
	decoded.Fields = QuoteItem(raw)
	*q = decoded
	return nil
}

// StoredQuote pairs a persisted record with the key it lives under.
type StoredQuote struct {
	Key   string `json:"key"`
	Quote *Quote `json:"quote"`
}

// AddQuoteOutcome distinguishes a saved quote from a legitimate empty result.
type AddQuoteOutcome string

const (
	OutcomeSaved   AddQuoteOutcome = "saved"
	OutcomeNoMatch AddQuoteOutcome = "no_match"
)

type AddQuoteRequest struct {
	Credential string
	Category   string
}

type AddQuoteResult struct {
	Outcome AddQuoteOutcome
	Key     string
	Quote   *Quote
}

// Saved reports whether the invocation produced a durable record.
func (r AddQuoteResult) Saved() bool {
	return r.Outcome == OutcomeSaved
}

// EventType names a gateway event.
type EventType string

const (
	EventQuoteAdded EventType = "QUOTE_ADDED"
)

// Event is pushed to the observer and fanned out to open streams.
type Event struct {
	Type  EventType `json:"type"`
	Key   string    `json:"key"`
	Quote *Quote    `json:"quote,omitempty"`
}
