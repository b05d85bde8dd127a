package usecase

import (
	"fmt"
	"strings"

	"shoprag/internal/domain"
)

// ContextBuilder merges product metadata and retrieved review snippets into
// a single prompt-ready block. Every chunk passes through SanitizeText
// before inclusion, so no raw PII ever reaches the LLM client.
type ContextBuilder struct{}

func NewContextBuilder() ContextBuilder {
	return ContextBuilder{}
}

// Build returns the assembled prompt block plus the individual context
// texts (product summary first, then each sanitized review in candidate
// order). The slice feeds the output guardrail's overlap computation.
func (b ContextBuilder) Build(product *domain.Product, candidates []domain.RetrievedCandidate) (string, []string) {
	var sb strings.Builder
	contexts := make([]string, 0, len(candidates)+1)

	sb.WriteString("=== PRODUCT INFORMATION ===\n\n")
	summary := b.productSummary(product)
	sb.WriteString(summary)
	contexts = append(contexts, summary)

	sb.WriteString("\n=== CUSTOMER REVIEWS ===\n")
	for i, candidate := range candidates {
		sanitized := SanitizeText(candidate.Chunk.Text)
		contexts = append(contexts, sanitized)

		sb.WriteString(fmt.Sprintf("\nReview %d:\n", i+1))
		sb.WriteString(fmt.Sprintf("Rating: %g/5\n", candidate.Chunk.Rating))
		if candidate.Chunk.VerifiedPurchase {
			sb.WriteString("Verified Purchase: Yes\n")
		} else {
			sb.WriteString("Verified Purchase: No\n")
		}
		sb.WriteString(sanitized)
		sb.WriteString("\n")
	}

	return sb.String(), contexts
}

func (b ContextBuilder) productSummary(product *domain.Product) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Product: %s\n", product.Title))
	sb.WriteString(fmt.Sprintf("Category: %s\n", product.Category))
	if product.Price != "" {
		sb.WriteString(fmt.Sprintf("Price: $%s\n", product.Price))
	}
	sb.WriteString(fmt.Sprintf("Average Rating: %g/5 (from %d reviews)\n", product.AverageRating, product.RatingCount))

	if len(product.Features) > 0 {
		sb.WriteString("\nKey Features:\n")
		for _, feature := range product.Features {
			sb.WriteString(fmt.Sprintf("- %s\n", feature))
		}
	}
	if product.Description != "" {
		sb.WriteString(fmt.Sprintf("\nDescription: %s\n", product.Description))
	}

	return sb.String()
}
