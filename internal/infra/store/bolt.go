package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"quotegw/internal/domain"
)

// BoltStore persists entries in a single bbolt bucket.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	bucket []byte
	path   string
	closed bool
}

func OpenBoltStore(path, bucket string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if strings.TrimSpace(bucket) == "" {
		bucket = domain.DefaultBoltBucket
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.E(domain.CodeUnavailable, "store.open", "open bolt db", err)
	}
	name := []byte(bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return &BoltStore{db: db, bucket: name, path: trimmed}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.Wrap(domain.CodeCanceled, "store.get", err)
	}
	var (
		value []byte
		found bool
	)
	err := s.view(func(b *bolt.Bucket) error {
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		value = append([]byte(nil), raw...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, domain.Wrap(domain.CodeUnavailable, "store.get", err)
	}
	return value, found, nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.Wrap(domain.CodeCanceled, "store.set", err)
	}
	if key == "" {
		return domain.E(domain.CodeInvalidArgument, "store.set", "key is required", nil)
	}
	err := s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return domain.Wrap(domain.CodeUnavailable, "store.set", err)
	}
	return nil
}

func (s *BoltStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	parsed, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeCanceled, "store.keys", err)
	}
	var keys []string
	err = s.view(func(b *bolt.Bucket) error {
		if parsed.Exact {
			if b.Get([]byte(parsed.Prefix)) != nil {
				keys = append(keys, parsed.Prefix)
			}
			return nil
		}
		prefix := []byte(parsed.Prefix)
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "store.keys", err)
	}
	return keys, nil
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) view(fn func(*bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("missing bucket %s", s.bucket)
		}
		return fn(b)
	})
}

func (s *BoltStore) update(fn func(*bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("missing bucket %s", s.bucket)
		}
		return fn(b)
	})
}

var _ domain.Store = (*BoltStore)(nil)
