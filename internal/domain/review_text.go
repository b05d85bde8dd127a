package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const minIngestTextLength = 20

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
	bareURL       = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// CleanText normalizes raw review text before embedding: collapses
// whitespace, strips HTML tags and URLs.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = htmlTag.ReplaceAllString(text, "")
	text = bareURL.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ShouldIncludeReview filters out low-quality reviews at ingestion time.
// A review must carry at least minIngestTextLength characters of cleaned
// text and a positive rating.
func ShouldIncludeReview(text string, rating float64) bool {
	if rating <= 0 {
		return false
	}
	return len(CleanText(text)) >= minIngestTextLength
}

// ComposeEmbeddingText combines a review with its product context into the
// text that gets embedded. The product name anchors the review semantically;
// full product metadata is added separately at query time.
func ComposeEmbeddingText(productTitle, reviewTitle, reviewText string, rating float64) string {
	parts := []string{fmt.Sprintf("Product: %s", productTitle)}
	if rating > 0 {
		parts = append(parts, fmt.Sprintf("Rating: %g/5", rating))
	}
	if title := CleanText(reviewTitle); title != "" {
		parts = append(parts, fmt.Sprintf("Review Title: %s", title))
	}
	if text := CleanText(reviewText); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}
