package productcache

import (
	"context"
	"fmt"

	"shoprag/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProductStore is a read-through LRU cache in front of a ProductStore.
// Product metadata changes only at ingest time, so cached entries are
// refreshed on Upsert and otherwise served as-is.
type CachedProductStore struct {
	inner domain.ProductStore
	cache *lru.Cache[string, *domain.Product]
}

func New(inner domain.ProductStore, size int) (*CachedProductStore, error) {
	cache, err := lru.New[string, *domain.Product](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create product cache: %w", err)
	}
	return &CachedProductStore{inner: inner, cache: cache}, nil
}

func (s *CachedProductStore) GetByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	if product, ok := s.cache.Get(asin); ok {
		return product, nil
	}
	product, err := s.inner.GetByASIN(ctx, asin)
	if err != nil {
		return nil, err
	}
	if product != nil {
		s.cache.Add(asin, product)
	}
	return product, nil
}

func (s *CachedProductStore) Upsert(ctx context.Context, product *domain.Product) error {
	if err := s.inner.Upsert(ctx, product); err != nil {
		return err
	}
	s.cache.Add(product.ASIN, product)
	return nil
}

func (s *CachedProductStore) Count(ctx context.Context) (int, error) {
	return s.inner.Count(ctx)
}

var _ domain.ProductStore = (*CachedProductStore)(nil)
