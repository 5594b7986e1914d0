package store

import (
	"context"
	"sort"
	"sync"

	"quotegw/internal/domain"
)

// MemoryStore keeps entries in process memory. Keys enumerate in byte order.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.Wrap(domain.CodeCanceled, "store.get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, domain.Wrap(domain.CodeUnavailable, "store.get", domain.ErrStoreClosed)
	}
	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.Wrap(domain.CodeCanceled, "store.set", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Wrap(domain.CodeUnavailable, "store.set", domain.ErrStoreClosed)
	}
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	parsed, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeCanceled, "store.keys", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.Wrap(domain.CodeUnavailable, "store.keys", domain.ErrStoreClosed)
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if parsed.Match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ domain.Store = (*MemoryStore)(nil)
