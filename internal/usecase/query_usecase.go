package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shoprag/internal/domain"
	"shoprag/internal/metrics"
)

const systemPrompt = `You are a helpful retail assistant that answers questions about products based on product information and customer reviews.
Only use the information provided in the context to answer questions. If you cannot find the answer in the context, say so.
Keep answers to two or three sentences. When mentioning customer opinions, indicate if they are common or isolated cases.`

const insufficientInfoAnswer = "There are no customer reviews available for this product, so I don't have enough information to answer your question."

// QueryInput encapsulates the parameters that drive one RAG query.
type QueryInput struct {
	Query        string
	ProductASIN  string
	TopK         int
	RequesterKey string
}

// QueryConfig carries the pipeline's fixed knobs.
type QueryConfig struct {
	EmbeddingDim     int
	DefaultTopK      int
	MaxTopK          int
	OverlapThreshold float64
	AnswerMaxTokens  int
	EmbedTimeout     time.Duration
	RetrieveTimeout  time.Duration
	GenerateTimeout  time.Duration
}

// QueryUsecase runs one stateless pipeline invocation per call. Stages run
// strictly sequentially; any stage failure short-circuits the rest and
// surfaces a structured error naming the stage.
type QueryUsecase interface {
	Execute(ctx context.Context, input QueryInput) (*domain.RagResult, error)
}

type queryUsecase struct {
	guardrail *InputGuardrail
	encoder   domain.VectorEncoder
	reviews   domain.ReviewStore
	products  domain.ProductStore
	builder   ContextBuilder
	llm       domain.LLMClient
	scorer    HallucinationScorer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       QueryConfig
}

// NewQueryUsecase wires together the components of the query pipeline.
func NewQueryUsecase(
	guardrail *InputGuardrail,
	encoder domain.VectorEncoder,
	reviews domain.ReviewStore,
	products domain.ProductStore,
	llm domain.LLMClient,
	scorer HallucinationScorer,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg QueryConfig,
) QueryUsecase {
	return &queryUsecase{
		guardrail: guardrail,
		encoder:   encoder,
		reviews:   reviews,
		products:  products,
		builder:   NewContextBuilder(),
		llm:       llm,
		scorer:    scorer,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

func (u *queryUsecase) Execute(ctx context.Context, input QueryInput) (*domain.RagResult, error) {
	u.metrics.QueriesTotal.Inc()

	// Validating
	start := time.Now()
	normalized, err := u.guardrail.Validate(input.Query, input.RequesterKey)
	u.observeStage(domain.StageValidating, start, err)
	if err != nil {
		u.metrics.RecordRejection(string(domain.KindOf(err)))
		u.logger.Info("query rejected", "reason", err.Error())
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = u.cfg.DefaultTopK
	}
	if topK > u.cfg.MaxTopK {
		topK = u.cfg.MaxTopK
	}

	// Embedding
	start = time.Now()
	vector, err := u.embedQuery(ctx, normalized)
	u.observeStage(domain.StageEmbedding, start, err)
	if err != nil {
		return nil, u.fail(domain.StageEmbedding, domain.KindEmbeddingFailure, "failed to embed query", err)
	}

	// Retrieving
	start = time.Now()
	candidates, err := u.retrieve(ctx, vector, input.ProductASIN, topK)
	u.observeStage(domain.StageRetrieving, start, err)
	if err != nil {
		return nil, u.fail(domain.StageRetrieving, domain.KindRetrievalFailure, "vector store unavailable", err)
	}

	// BuildingContext
	start = time.Now()
	product := u.resolveProduct(ctx, input.ProductASIN, candidates)
	if len(candidates) == 0 {
		// The store is reachable but holds nothing relevant. This is a
		// successful result, not a retrieval failure.
		u.observeStage(domain.StageBuildingContext, start, nil)
		return &domain.RagResult{
			Query:            normalized,
			Answer:           insufficientInfoAnswer,
			Product:          product,
			NumDocumentsUsed: 0,
		}, nil
	}
	contextBlock, contextTexts := u.builder.Build(product, candidates)
	u.observeStage(domain.StageBuildingContext, start, nil)

	// Generating
	start = time.Now()
	answer, err := u.generate(ctx, contextBlock, normalized)
	u.observeStage(domain.StageGenerating, start, err)
	if err != nil {
		return nil, u.fail(domain.StageGenerating, domain.KindGenerationFailure, "llm generation failed", err)
	}

	// CheckingOutput
	start = time.Now()
	ratio := u.scorer.Score(answer, contextTexts)
	u.observeStage(domain.StageCheckingOutput, start, nil)

	flagged := ratio < u.cfg.OverlapThreshold
	if flagged {
		u.metrics.HallucinationFlags.Inc()
		u.logger.Warn("answer flagged for low context overlap", "overlap_ratio", ratio)
	}

	return &domain.RagResult{
		Query:             normalized,
		Answer:            answer,
		Product:           product,
		Candidates:        candidates,
		NumDocumentsUsed:  len(candidates),
		HallucinationFlag: flagged,
		OverlapRatio:      ratio,
	}, nil
}

func (u *queryUsecase) embedQuery(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := withTimeout(ctx, u.cfg.EmbedTimeout)
	defer cancel()

	vectors, err := u.encoder.Encode(embedCtx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != u.cfg.EmbeddingDim {
		return nil, fmt.Errorf("unexpected embedding dimension %d, want %d", len(vectors[0]), u.cfg.EmbeddingDim)
	}
	return vectors[0], nil
}

func (u *queryUsecase) retrieve(ctx context.Context, vector []float32, productASIN string, topK int) ([]domain.RetrievedCandidate, error) {
	retrieveCtx, cancel := withTimeout(ctx, u.cfg.RetrieveTimeout)
	defer cancel()

	return u.reviews.Search(retrieveCtx, vector, productASIN, topK)
}

// resolveProduct loads catalog metadata for the answer. Metadata is
// best-effort: a lookup failure degrades to a minimal snapshot instead of
// failing the query, matching how retrieval quality and product metadata
// are decoupled.
func (u *queryUsecase) resolveProduct(ctx context.Context, asin string, candidates []domain.RetrievedCandidate) *domain.Product {
	if asin == "" && len(candidates) > 0 {
		asin = candidates[0].Chunk.ProductASIN
	}
	if asin != "" {
		product, err := u.products.GetByASIN(ctx, asin)
		if err != nil {
			u.logger.Warn("product lookup failed", "asin", asin, "error", err)
		} else if product != nil {
			return product
		}
		return &domain.Product{
			ASIN:        asin,
			Title:       fmt.Sprintf("Product %s", asin),
			Category:    "Unknown",
			Description: "No product metadata available.",
		}
	}
	return &domain.Product{Title: "Unknown Product", Category: "Unknown"}
}

func (u *queryUsecase) generate(ctx context.Context, contextBlock, query string) (string, error) {
	genCtx, cancel := withTimeout(ctx, u.cfg.GenerateTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer based on the product information and customer reviews above:", contextBlock, query)

	resp, err := u.llm.Generate(genCtx, systemPrompt, userPrompt, u.cfg.AnswerMaxTokens)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("empty llm response")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (u *queryUsecase) observeStage(stage domain.Stage, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	u.metrics.ObserveStage(string(stage), status, time.Since(start))
}

func (u *queryUsecase) fail(stage domain.Stage, kind domain.ErrorKind, reason string, err error) error {
	perr := domain.NewPipelineError(stage, kind, reason, err)
	u.metrics.RecordError(string(stage), string(kind))
	u.logger.Error("pipeline stage failed", "stage", string(stage), "kind", string(kind), "error", perr.Error())
	return perr
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
