package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"quotegw/internal/domain"
	"quotegw/internal/infra/store"
)

type fakeFetcher struct {
	item  domain.QuoteItem
	err   error
	calls atomic.Int32
	opts  domain.FetchOptions
	cred  string
}

func (f *fakeFetcher) FetchOne(_ context.Context, credential string, opts domain.FetchOptions) (domain.QuoteItem, error) {
	f.calls.Add(1)
	f.cred = credential
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.item, nil
}

type countingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *countingNotifier) Notify(event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *countingNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return errors.New("publish is best effort")
}

func (p *capturePublisher) Close() error { return nil }

// countingStore wraps a memory store and can fail writes.
type countingStore struct {
	*store.MemoryStore
	writes  atomic.Int32
	failSet error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore()}
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.writes.Add(1)
	return s.MemoryStore.Set(ctx, key, value)
}

func sampleItem() domain.QuoteItem {
	return domain.QuoteItem{
		"quote":    json.RawMessage(`"Simplicity is prerequisite for reliability."`),
		"author":   json.RawMessage(`"Edsger Dijkstra"`),
		"category": json.RawMessage(`"computers"`),
	}
}
