package usecase

import (
	"strings"
	"unicode"
)

// HallucinationScorer assigns a grounding ratio to a generated answer.
// Kept as a one-method interface so stronger techniques can be substituted
// without touching the orchestrator.
type HallucinationScorer interface {
	Score(answer string, contexts []string) float64
}

// LexicalOverlapScorer computes the fraction of distinct answer words that
// also appear in the context word set. Policy: case-insensitive, tokens are
// runs of letters and digits, tokens shorter than minTokenRunes are dropped
// (a cheap stand-in for stopword removal, applied identically to answer and
// context). An answer with no surviving tokens scores 0.
type LexicalOverlapScorer struct {
	minTokenRunes int
}

func NewLexicalOverlapScorer() LexicalOverlapScorer {
	return LexicalOverlapScorer{minTokenRunes: 3}
}

func (s LexicalOverlapScorer) Score(answer string, contexts []string) float64 {
	answerTokens := s.tokenSet(answer)
	if len(answerTokens) == 0 {
		return 0
	}

	contextTokens := make(map[string]struct{})
	for _, ctx := range contexts {
		for token := range s.tokenSet(ctx) {
			contextTokens[token] = struct{}{}
		}
	}

	matched := 0
	for token := range answerTokens {
		if _, ok := contextTokens[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(answerTokens))
}

func (s LexicalOverlapScorer) tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < s.minTokenRunes {
			continue
		}
		set[field] = struct{}{}
	}
	return set
}
