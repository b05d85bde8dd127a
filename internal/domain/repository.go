package domain

import (
	"context"

	"github.com/google/uuid"
)

// ReviewStore provides similarity search and persistence for review chunks.
type ReviewStore interface {
	// Search returns up to limit candidates ordered by descending
	// similarity. Equal scores are broken by more recent review first.
	// productASIN, when non-empty, restricts candidates to that product.
	// A reachable store with no matches returns an empty slice and nil
	// error; an unreachable store returns a non-nil error.
	Search(ctx context.Context, queryVector []float32, productASIN string, limit int) ([]RetrievedCandidate, error)

	// BulkInsertChunks inserts multiple chunks.
	BulkInsertChunks(ctx context.Context, chunks []ReviewChunk) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// ProductStore resolves catalog metadata.
type ProductStore interface {
	// GetByASIN retrieves a product. Returns nil, nil if not found.
	GetByASIN(ctx context.Context, asin string) (*Product, error)

	// Upsert creates or replaces a product.
	Upsert(ctx context.Context, product *Product) error

	// Count returns the number of stored products.
	Count(ctx context.Context) (int, error)
}

// IngestJobRepository manages queued ingestion jobs.
type IngestJobRepository interface {
	Enqueue(ctx context.Context, job *IngestJob) error

	// AcquireNextJob atomically claims the oldest queued job.
	// Returns nil, nil when no job is available.
	AcquireNextJob(ctx context.Context) (*IngestJob, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
