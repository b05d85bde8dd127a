package domain_test

import (
	"testing"

	"shoprag/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace",
			input:    "great   phone\n\nworks  well",
			expected: "great phone works well",
		},
		{
			name:     "strips html tags",
			input:    "love the <b>battery</b> life",
			expected: "love the battery life",
		},
		{
			name:     "strips urls",
			input:    "see my unboxing at https://example.com/video here",
			expected: "see my unboxing at  here",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.CleanText(tt.input))
		})
	}
}

func TestShouldIncludeReview(t *testing.T) {
	assert.True(t, domain.ShouldIncludeReview("this case fits perfectly and feels sturdy", 5))
	assert.False(t, domain.ShouldIncludeReview("too short", 5), "short text excluded")
	assert.False(t, domain.ShouldIncludeReview("this case fits perfectly and feels sturdy", 0), "missing rating excluded")
	assert.False(t, domain.ShouldIncludeReview("", 4), "empty text excluded")
}

func TestComposeEmbeddingText(t *testing.T) {
	got := domain.ComposeEmbeddingText("Acme Phone Case", "Solid buy", "Survived  several drops.", 4)
	assert.Equal(t, "Product: Acme Phone Case\nRating: 4/5\nReview Title: Solid buy\nSurvived several drops.", got)

	// No rating, no title: only product and body remain.
	got = domain.ComposeEmbeddingText("Acme Phone Case", "", "Survived several drops.", 0)
	assert.Equal(t, "Product: Acme Phone Case\nSurvived several drops.", got)
}
