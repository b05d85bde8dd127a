package productcache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/adapter/productcache"
	"shoprag/internal/domain"
)

type countingStore struct {
	products map[string]*domain.Product
	gets     int
	upserts  int
}

func newCountingStore() *countingStore {
	return &countingStore{products: make(map[string]*domain.Product)}
}

func (s *countingStore) GetByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	s.gets++
	return s.products[asin], nil
}

func (s *countingStore) Upsert(ctx context.Context, product *domain.Product) error {
	s.upserts++
	s.products[product.ASIN] = product
	return nil
}

func (s *countingStore) Count(ctx context.Context) (int, error) {
	return len(s.products), nil
}

func TestGetByASIN_SecondLookupServedFromCache(t *testing.T) {
	inner := newCountingStore()
	inner.products["B001"] = &domain.Product{ASIN: "B001", Title: "Widget"}

	store, err := productcache.New(inner, 8)
	require.NoError(t, err)

	first, err := store.GetByASIN(context.Background(), "B001")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.GetByASIN(context.Background(), "B001")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, "Widget", second.Title)
}

func TestGetByASIN_MissIsNotCached(t *testing.T) {
	inner := newCountingStore()
	store, err := productcache.New(inner, 8)
	require.NoError(t, err)

	product, err := store.GetByASIN(context.Background(), "B404")
	require.NoError(t, err)
	assert.Nil(t, product)

	// A miss must hit the backing store again; the product may have been
	// ingested in the meantime.
	inner.products["B404"] = &domain.Product{ASIN: "B404", Title: "Late Arrival"}
	product, err = store.GetByASIN(context.Background(), "B404")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Late Arrival", product.Title)
	assert.Equal(t, 2, inner.gets)
}

func TestUpsert_RefreshesCachedEntry(t *testing.T) {
	inner := newCountingStore()
	inner.products["B001"] = &domain.Product{ASIN: "B001", Title: "Old Title"}

	store, err := productcache.New(inner, 8)
	require.NoError(t, err)

	_, err = store.GetByASIN(context.Background(), "B001")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(context.Background(), &domain.Product{ASIN: "B001", Title: "New Title"}))

	product, err := store.GetByASIN(context.Background(), "B001")
	require.NoError(t, err)
	assert.Equal(t, "New Title", product.Title)
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, inner.upserts)
}

func TestEviction_FallsBackToStore(t *testing.T) {
	inner := newCountingStore()
	inner.products["B001"] = &domain.Product{ASIN: "B001"}
	inner.products["B002"] = &domain.Product{ASIN: "B002"}
	inner.products["B003"] = &domain.Product{ASIN: "B003"}

	store, err := productcache.New(inner, 2)
	require.NoError(t, err)

	for _, asin := range []string{"B001", "B002", "B003", "B001"} {
		product, err := store.GetByASIN(context.Background(), asin)
		require.NoError(t, err)
		require.NotNil(t, product)
	}

	// B001 was evicted by B003, so the last lookup went back to the store.
	assert.Equal(t, 4, inner.gets)
}
