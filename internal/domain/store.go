package domain

import (
	"context"
	"time"
)

// Store is uniform get/set/enumerate access to an external key-value store.
// Patterns support "*" (all keys) and a single trailing wildcard (prefix).
// Connectivity failures surface as CodeUnavailable; no retries are performed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// FetchOptions carries provider parameters that travel with a single call.
type FetchOptions struct {
	Category string
}

// Fetcher retrieves one item from the external content provider. It returns
// ErrQuoteNotFound when the provider has nothing to offer.
type Fetcher interface {
	FetchOne(ctx context.Context, credential string, opts FetchOptions) (QuoteItem, error)
}

// Notifier delivers events to the registered observer. Notify never blocks
// on delivery and never reports its outcome to the caller.
type Notifier interface {
	Notify(event Event)
}

// Publisher fans events out to in-process or external subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KeyGenerator derives a store key for a quote created at the given instant.
type KeyGenerator interface {
	QuoteKey(createdAt time.Time) (string, error)
}

// Clock returns the current time.
type Clock func() time.Time
