package repository

import (
	"context"
	"fmt"

	"shoprag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type reviewRepository struct {
	pool            *pgxpool.Pool
	minReviewLength int
	maxDistance     float64
}

// NewReviewRepository creates a ReviewStore backed by pgvector similarity
// search. minReviewLength and maxDistance are the retrieval quality gates:
// shorter reviews and matches at or beyond the cosine distance cutoff are
// never returned.
func NewReviewRepository(pool *pgxpool.Pool, minReviewLength int, maxDistance float64) domain.ReviewStore {
	return &reviewRepository{
		pool:            pool,
		minReviewLength: minReviewLength,
		maxDistance:     maxDistance,
	}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *reviewRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

// Search returns the closest quality reviews to the query vector. Ties on
// distance break toward the more recent review.
func (r *reviewRepository) Search(ctx context.Context, queryVector []float32, productASIN string, limit int) ([]domain.RetrievedCandidate, error) {
	query := `
		SELECT id, product_asin, review_text, rating, verified_purchase, helpful_votes, review_ts, embedding,
		       embedding <=> $1 AS distance
		FROM review_chunks
		WHERE ($2 = '' OR product_asin = $2)
		  AND length(review_text) >= $3
		  AND rating > 0
		  AND embedding <=> $1 < $4
		ORDER BY embedding <=> $1 ASC, review_ts DESC
		LIMIT $5
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query,
		pgvector.NewVector(queryVector),
		productASIN,
		r.minReviewLength,
		r.maxDistance,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query review chunks: %w", err)
	}
	defer rows.Close()

	var candidates []domain.RetrievedCandidate
	for rows.Next() {
		var c domain.ReviewChunk
		var distance float64
		if err := rows.Scan(
			&c.ID,
			&c.ProductASIN,
			&c.Text,
			&c.Rating,
			&c.VerifiedPurchase,
			&c.HelpfulVotes,
			&c.ReviewedAt,
			&c.Embedding,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review chunk: %w", err)
		}
		candidates = append(candidates, domain.RetrievedCandidate{
			Chunk: c,
			Score: float32(1 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return candidates, nil
}

func (r *reviewRepository) BulkInsertChunks(ctx context.Context, chunks []domain.ReviewChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.ProductASIN,
			chunk.Text,
			chunk.Rating,
			chunk.VerifiedPurchase,
			chunk.HelpfulVotes,
			chunk.ReviewedAt,
			chunk.Embedding,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"review_chunks"},
		[]string{"id", "product_asin", "review_text", "rating", "verified_purchase", "helpful_votes", "review_ts", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert review chunks: %w", err)
	}

	return nil
}

func (r *reviewRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM review_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count review chunks: %w", err)
	}
	return count, nil
}
