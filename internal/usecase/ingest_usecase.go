package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shoprag/internal/domain"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

// ReviewInput is one raw review as it arrives from the dataset or the
// ingest endpoint, before cleaning and filtering.
type ReviewInput struct {
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	Rating           float64   `json:"rating"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	HelpfulVotes     int       `json:"helpful_votes"`
	ReviewedAt       time.Time `json:"reviewed_at"`
}

// IngestInput carries one product and its raw reviews.
type IngestInput struct {
	Product domain.Product `json:"product"`
	Reviews []ReviewInput  `json:"reviews"`
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	ReviewsSeen    int `json:"reviews_seen"`
	ReviewsSkipped int `json:"reviews_skipped"`
	ChunksInserted int `json:"chunks_inserted"`
}

type IngestConfig struct {
	EmbeddingDim int
	BatchSize    int // reviews embedded per backend call
	Concurrency  int // concurrent embedding batches
}

// IngestUsecase embeds filtered reviews and persists them with their
// product metadata in one transaction.
type IngestUsecase interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestStats, error)
}

type ingestUsecase struct {
	encoder   domain.VectorEncoder
	reviews   domain.ReviewStore
	products  domain.ProductStore
	txManager domain.TransactionManager
	logger    *slog.Logger
	cfg       IngestConfig
}

func NewIngestUsecase(
	encoder domain.VectorEncoder,
	reviews domain.ReviewStore,
	products domain.ProductStore,
	txManager domain.TransactionManager,
	logger *slog.Logger,
	cfg IngestConfig,
) IngestUsecase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &ingestUsecase{
		encoder:   encoder,
		reviews:   reviews,
		products:  products,
		txManager: txManager,
		logger:    logger,
		cfg:       cfg,
	}
}

func (u *ingestUsecase) Ingest(ctx context.Context, input IngestInput) (*IngestStats, error) {
	if input.Product.ASIN == "" {
		return nil, fmt.Errorf("product asin is required")
	}

	stats := &IngestStats{ReviewsSeen: len(input.Reviews)}

	var kept []ReviewInput
	var embedTexts []string
	for _, review := range input.Reviews {
		if !domain.ShouldIncludeReview(review.Text, review.Rating) {
			stats.ReviewsSkipped++
			continue
		}
		kept = append(kept, review)
		embedTexts = append(embedTexts, domain.ComposeEmbeddingText(input.Product.Title, review.Title, review.Text, review.Rating))
	}

	if len(kept) == 0 {
		// Still record the product so metadata lookups succeed.
		if err := u.products.Upsert(ctx, &input.Product); err != nil {
			return nil, fmt.Errorf("failed to upsert product: %w", err)
		}
		u.logger.Info("ingest completed with no eligible reviews",
			"asin", input.Product.ASIN,
			"reviews_seen", stats.ReviewsSeen,
		)
		return stats, nil
	}

	embeddings, err := u.embedBatches(ctx, embedTexts)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.ReviewChunk, len(kept))
	for i, review := range kept {
		chunks[i] = domain.ReviewChunk{
			ID:               uuid.New(),
			ProductASIN:      input.Product.ASIN,
			Text:             domain.CleanText(review.Text),
			Rating:           review.Rating,
			VerifiedPurchase: review.VerifiedPurchase,
			HelpfulVotes:     review.HelpfulVotes,
			ReviewedAt:       review.ReviewedAt,
			Embedding:        pgvector.NewVector(embeddings[i]),
		}
	}

	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.products.Upsert(ctx, &input.Product); err != nil {
			return fmt.Errorf("failed to upsert product: %w", err)
		}
		if err := u.reviews.BulkInsertChunks(ctx, chunks); err != nil {
			return fmt.Errorf("failed to insert review chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.ChunksInserted = len(chunks)
	u.logger.Info("ingest completed",
		"asin", input.Product.ASIN,
		"reviews_seen", stats.ReviewsSeen,
		"reviews_skipped", stats.ReviewsSkipped,
		"chunks_inserted", stats.ChunksInserted,
	)
	return stats, nil
}

// embedBatches encodes texts in fixed-size batches, several in flight at
// once. Results keep the input order regardless of completion order.
func (u *ingestUsecase) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	for start := 0; start < len(texts); start += u.cfg.BatchSize {
		end := start + u.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := u.encoder.Encode(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed batch [%d:%d]: %w", start, end, err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("embedding count mismatch in batch [%d:%d]: got %d", start, end, len(vectors))
			}
			for i, v := range vectors {
				if len(v) != u.cfg.EmbeddingDim {
					return fmt.Errorf("unexpected embedding dimension %d, want %d", len(v), u.cfg.EmbeddingDim)
				}
				embeddings[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}
