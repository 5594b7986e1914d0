// Package store implements the key-value Store Adapter over bbolt,
// PostgreSQL and process memory.
package store

import (
	"context"
	"fmt"
	"strings"

	"quotegw/internal/domain"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Options struct {
	Driver      string
	BoltPath    string
	BoltBucket  string
	PostgresURL string
	Metrics     domain.Metrics
}

// Open builds the adapter selected by opts.Driver.
func Open(opts Options) (domain.Store, error) {
	var (
		base domain.Store
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverBolt:
		base, err = OpenBoltStore(opts.BoltPath, opts.BoltBucket)
	case DriverPostgres:
		base, err = OpenPostgresStore(opts.PostgresURL)
	case DriverMemory:
		base = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Metrics == nil {
		return base, nil
	}
	return Instrument(base, opts.Metrics), nil
}

// instrumented records the outcome of every store call.
type instrumented struct {
	next    domain.Store
	metrics domain.Metrics
}

func Instrument(next domain.Store, metrics domain.Metrics) domain.Store {
	return &instrumented{next: next, metrics: metrics}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := s.next.Get(ctx, key)
	s.metrics.ObserveStoreOp("get", err)
	return value, ok, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	err := s.next.Set(ctx, key, value)
	s.metrics.ObserveStoreOp("set", err)
	return err
}

func (s *instrumented) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.next.Keys(ctx, pattern)
	s.metrics.ObserveStoreOp("keys", err)
	return keys, err
}

func (s *instrumented) Close() error {
	return s.next.Close()
}
