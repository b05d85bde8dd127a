package usecase_test

import (
	"context"
	"errors"
	"math"
	"sort"

	"shoprag/internal/domain"
)

var errStoreUnavailable = errors.New("connection refused")

// memoryReviewStore is a fixture-backed ReviewStore applying the same
// quality filter, distance cutoff, and ordering contract as the SQL
// repository: similarity descending, later review first on ties.
type memoryReviewStore struct {
	chunks        []domain.ReviewChunk
	minTextLength int
	maxDistance   float64
	unavailable   bool
}

func newMemoryReviewStore(chunks ...domain.ReviewChunk) *memoryReviewStore {
	return &memoryReviewStore{
		chunks:        chunks,
		minTextLength: 30,
		maxDistance:   0.65,
	}
}

func (s *memoryReviewStore) Search(ctx context.Context, queryVector []float32, productASIN string, limit int) ([]domain.RetrievedCandidate, error) {
	if s.unavailable {
		return nil, errStoreUnavailable
	}

	var candidates []domain.RetrievedCandidate
	for _, chunk := range s.chunks {
		if productASIN != "" && chunk.ProductASIN != productASIN {
			continue
		}
		if len(chunk.Text) < s.minTextLength || chunk.Rating <= 0 {
			continue
		}
		similarity := cosineSimilarity(queryVector, chunk.Embedding.Slice())
		if 1-float64(similarity) >= s.maxDistance {
			continue
		}
		candidates = append(candidates, domain.RetrievedCandidate{Chunk: chunk, Score: similarity})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ReviewedAt.After(candidates[j].Chunk.ReviewedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *memoryReviewStore) BulkInsertChunks(ctx context.Context, chunks []domain.ReviewChunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *memoryReviewStore) Count(ctx context.Context) (int, error) {
	return len(s.chunks), nil
}

type memoryProductStore struct {
	products map[string]*domain.Product
}

func newMemoryProductStore(products ...*domain.Product) *memoryProductStore {
	store := &memoryProductStore{products: make(map[string]*domain.Product)}
	for _, p := range products {
		store.products[p.ASIN] = p
	}
	return store
}

func (s *memoryProductStore) GetByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	return s.products[asin], nil
}

func (s *memoryProductStore) Upsert(ctx context.Context, product *domain.Product) error {
	s.products[product.ASIN] = product
	return nil
}

func (s *memoryProductStore) Count(ctx context.Context) (int, error) {
	return len(s.products), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
