package usecase_test

import (
	"testing"

	"shoprag/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestLexicalOverlapScorer_ZeroOverlap(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	ratio := scorer.Score(
		"penguins migrate toward warmer climates yearly",
		[]string{"the phone case survived multiple drops without cracking"},
	)

	assert.Equal(t, 0.0, ratio)
}

func TestLexicalOverlapScorer_VerbatimSubstring(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	context := "The case survived multiple drops without cracking and the grip feels excellent."
	ratio := scorer.Score("survived multiple drops without cracking", []string{context})

	assert.InDelta(t, 1.0, ratio, 1e-9)
}

func TestLexicalOverlapScorer_CaseInsensitive(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	ratio := scorer.Score("DURABLE case", []string{"very durable CASE indeed"})

	assert.InDelta(t, 1.0, ratio, 1e-9)
}

func TestLexicalOverlapScorer_PartialOverlap(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	// "battery" and "lasts" appear in context; "forever" and "guaranteed" do not.
	ratio := scorer.Score("battery lasts forever guaranteed", []string{"the battery lasts about two days"})

	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestLexicalOverlapScorer_EmptyAnswer(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	assert.Equal(t, 0.0, scorer.Score("", []string{"context"}))
	// Only sub-minimum tokens survive nothing, so this also scores 0.
	assert.Equal(t, 0.0, scorer.Score("a an it", []string{"context"}))
}

func TestLexicalOverlapScorer_ShortTokensDropped(t *testing.T) {
	scorer := usecase.NewLexicalOverlapScorer()

	// "is" and "it" are below the minimum token length on both sides, so
	// only "durable" participates.
	ratio := scorer.Score("it is durable", []string{"durable shell"})

	assert.InDelta(t, 1.0, ratio, 1e-9)
}
