package domain

import (
	"context"
)

// VectorEncoder defines the interface for generating embeddings.
// Encoding is deterministic for identical input under a fixed model version.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
