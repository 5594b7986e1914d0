package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
	"quotegw/internal/infra/store"
)

type failingStore struct {
	domain.Store
	err error
}

func (s failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, s.err
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func TestCatalog_ListClassifiesKeys(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, "quotes:1700000000000", []byte(`{}`)))
	require.NoError(t, mem.Set(ctx, "session:abc", []byte(`{}`)))

	resources, err := New(mem, nil).List(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.Resource{
		{Key: "quotes:1700000000000", Kind: domain.ResourceKindQuote},
		{Key: "session:abc", Kind: domain.ResourceKindUnknown},
	}, resources)
}

func TestCatalog_ListEmptyStore(t *testing.T) {
	resources, err := New(store.NewMemoryStore(), nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resources)
}

func TestCatalog_ListStoreUnavailable(t *testing.T) {
	cat := New(failingStore{err: errors.New("connection refused")}, nil)

	_, err := cat.List(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeUnavailable))
}

func TestCatalog_Read(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, "quotes:1", []byte(`{"quote":"x"}`)))
	cat := New(mem, nil)

	value, err := cat.Read(ctx, "quotes:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"quote":"x"}`, string(value))

	_, err = cat.Read(ctx, "quotes:2")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	assert.ErrorIs(t, err, domain.ErrResourceMissing)

	_, err = cat.Read(ctx, " ")
	assert.True(t, domain.IsCode(err, domain.CodeInvalidArgument))

	_, err = New(failingStore{err: errors.New("down")}, nil).Read(ctx, "quotes:1")
	assert.True(t, domain.IsCode(err, domain.CodeUnavailable))
}

func TestClassifyKey(t *testing.T) {
	tests := map[string]domain.ResourceKind{
		"quotes:1700000000000": domain.ResourceKindQuote,
		"quotes:":              domain.ResourceKindQuote,
		"quote:1":              domain.ResourceKindUnknown,
		"session:abc":          domain.ResourceKindUnknown,
		"":                     domain.ResourceKindUnknown,
	}
	for key, want := range tests {
		assert.Equal(t, want, ClassifyKey(key), key)
	}
}
