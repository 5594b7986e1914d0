// Package catalog enumerates store keys as classified resources.
package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"quotegw/internal/domain"
)

// Catalog is a read-only view over the keys of a store.
type Catalog struct {
	store  domain.Store
	logger *zap.Logger
}

func New(store domain.Store, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, logger: logger.Named("catalog")}
}

// List classifies every stored key. Order is whatever the store returns.
func (c *Catalog) List(ctx context.Context) ([]domain.Resource, error) {
	keys, err := c.store.Keys(ctx, domain.WildcardPattern)
	if err != nil {
		c.logger.Warn("enumerate keys failed", zap.Error(err))
		return nil, domain.Wrap(domain.CodeUnavailable, "catalog.List", err)
	}
	resources := make([]domain.Resource, 0, len(keys))
	for _, key := range keys {
		resources = append(resources, domain.Resource{Key: key, Kind: ClassifyKey(key)})
	}
	return resources, nil
}

// Read returns the raw stored value behind a resource key.
func (c *Catalog) Read(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, domain.E(domain.CodeInvalidArgument, "catalog.Read", "resource key is required", nil)
	}
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "catalog.Read", err)
	}
	if !ok {
		return nil, domain.E(domain.CodeNotFound, "catalog.Read", "", domain.ErrResourceMissing)
	}
	return value, nil
}

func ClassifyKey(key string) domain.ResourceKind {
	if strings.HasPrefix(key, domain.QuoteKeyPrefix) {
		return domain.ResourceKindQuote
	}
	return domain.ResourceKindUnknown
}
