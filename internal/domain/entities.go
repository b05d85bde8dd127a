package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Query carries a single user question through the pipeline.
type Query struct {
	Text         string
	ProductASIN  string // optional; restricts retrieval to one product
	TopK         int
	RequesterKey string // identity used for rate limiting
}

// Product is the catalog metadata for one item. Read-only on the query path.
type Product struct {
	ASIN          string   `json:"asin"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	AverageRating float64  `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
	Price         string   `json:"price"`
	Features      []string `json:"features"`
	Description   string   `json:"description"`
}

// ReviewChunk is one ingested review paired with its embedding.
// Chunks are immutable after ingestion.
type ReviewChunk struct {
	ID               uuid.UUID
	ProductASIN      string
	Text             string
	Rating           float64
	VerifiedPurchase bool
	HelpfulVotes     int
	ReviewedAt       time.Time
	Embedding        pgvector.Vector
}

// RetrievedCandidate is a chunk matched by similarity search,
// ordered by descending score.
type RetrievedCandidate struct {
	Chunk ReviewChunk
	Score float32
}

// RagResult is the response for one query invocation. The hallucination
// flag is advisory metadata, never an error.
type RagResult struct {
	Query             string
	Answer            string
	Product           *Product
	Candidates        []RetrievedCandidate
	NumDocumentsUsed  int
	HallucinationFlag bool
	OverlapRatio      float64
}

const (
	JobTypeIngestReviews = "ingest_reviews"

	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// IngestJob is a queued asynchronous ingestion request.
type IngestJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte // raw JSON payload
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
