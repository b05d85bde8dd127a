package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"shoprag/internal/domain"

	"golang.org/x/time/rate"
)

// Patterns that might indicate prompt injection attempts. Heuristic and
// best-effort, not a security boundary.
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|above|all)\s+(instructions|prompts?|commands?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a?`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)forget\s+(everything|all|previous)`),
	regexp.MustCompile(`(?i)disregard\s+(the\s+)?(above|previous)`),
	regexp.MustCompile(`(?i)new\s+instructions?`),
	regexp.MustCompile(`(?i)pretend\s+(you|to)\s+are`),
}

const staleLimiterAge = 5 * time.Minute

// GuardrailConfig bounds accepted queries.
type GuardrailConfig struct {
	MinQueryLength int
	MaxQueryLength int
	RateLimitMax   int           // requests allowed per window, per requester
	RateWindow     time.Duration // rolling window length
}

type requesterLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InputGuardrail validates and normalizes user queries before any external
// call is made. Rate limiting uses token buckets keyed by requester with
// burst equal to the window budget; passing the clock explicitly keeps
// outcomes deterministic under replay.
type InputGuardrail struct {
	cfg GuardrailConfig
	now func() time.Time

	mu       sync.Mutex
	limiters map[string]*requesterLimiter
}

func NewInputGuardrail(cfg GuardrailConfig) *InputGuardrail {
	return NewInputGuardrailWithClock(cfg, time.Now)
}

func NewInputGuardrailWithClock(cfg GuardrailConfig, now func() time.Time) *InputGuardrail {
	// A non-positive budget or window would make the limiter interval
	// divide by zero; clamp to the smallest sane values.
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 1
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Second
	}
	return &InputGuardrail{
		cfg:      cfg,
		now:      now,
		limiters: make(map[string]*requesterLimiter),
	}
}

// Validate returns the normalized query text, or a validating-stage error.
// The only side effect is the rate-limit counter update for the requester.
func (g *InputGuardrail) Validate(query, requesterKey string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", domain.NewPipelineError(domain.StageValidating, domain.KindValidationRejected, "query cannot be empty", nil)
	}

	length := utf8.RuneCountInString(trimmed)
	if length < g.cfg.MinQueryLength {
		return "", domain.NewPipelineError(domain.StageValidating, domain.KindValidationRejected,
			fmt.Sprintf("query too short (minimum %d characters)", g.cfg.MinQueryLength), nil)
	}
	if length > g.cfg.MaxQueryLength {
		return "", domain.NewPipelineError(domain.StageValidating, domain.KindValidationRejected,
			fmt.Sprintf("query too long (maximum %d characters)", g.cfg.MaxQueryLength), nil)
	}

	for _, pattern := range promptInjectionPatterns {
		if pattern.MatchString(trimmed) {
			return "", domain.NewPipelineError(domain.StageValidating, domain.KindValidationRejected, "invalid query detected", nil)
		}
	}

	if requesterKey == "" {
		requesterKey = "default"
	}
	if !g.allow(requesterKey) {
		return "", domain.NewPipelineError(domain.StageValidating, domain.KindRateLimited,
			fmt.Sprintf("too many requests (maximum %d per %s)", g.cfg.RateLimitMax, g.cfg.RateWindow), nil)
	}

	return trimmed, nil
}

func (g *InputGuardrail) allow(requesterKey string) bool {
	now := g.now()

	g.mu.Lock()
	entry, ok := g.limiters[requesterKey]
	if !ok {
		g.evictStaleLocked(now)
		limit := rate.Every(g.cfg.RateWindow / time.Duration(g.cfg.RateLimitMax))
		entry = &requesterLimiter{limiter: rate.NewLimiter(limit, g.cfg.RateLimitMax)}
		g.limiters[requesterKey] = entry
	}
	entry.lastSeen = now
	g.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

func (g *InputGuardrail) evictStaleLocked(now time.Time) {
	for key, entry := range g.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterAge {
			delete(g.limiters, key)
		}
	}
}
