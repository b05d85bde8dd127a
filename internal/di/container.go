package di

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"shoprag/internal/adapter/embedder"
	"shoprag/internal/adapter/llmchat"
	"shoprag/internal/adapter/productcache"
	"shoprag/internal/adapter/repository"
	"shoprag/internal/domain"
	"shoprag/internal/infra/config"
	"shoprag/internal/metrics"
	"shoprag/internal/usecase"
	"shoprag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	ReviewStore  domain.ReviewStore
	ProductStore domain.ProductStore
	JobRepo      domain.IngestJobRepository
	Encoder      domain.VectorEncoder
	LLM          domain.LLMClient

	QueryUsecase  usecase.QueryUsecase
	IngestUsecase usecase.IngestUsecase

	Worker  *worker.JobWorker
	Metrics *metrics.Metrics
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	reviewStore := repository.NewReviewRepository(pool, cfg.MinReviewLength, cfg.MaxDistance)
	jobRepo := repository.NewIngestJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	productStore, err := productcache.New(repository.NewProductRepository(pool), cfg.ProductCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build product store: %w", err)
	}

	encoder := embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbedTimeout)
	llm := llmchat.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, 0.2, cfg.GenerateTimeout)

	m := metrics.New()

	guardrail := usecase.NewInputGuardrail(usecase.GuardrailConfig{
		MinQueryLength: cfg.MinQueryLength,
		MaxQueryLength: cfg.MaxQueryLength,
		RateLimitMax:   cfg.RateLimitMax,
		RateWindow:     cfg.RateLimitWindow,
	})

	queryUsecase := usecase.NewQueryUsecase(
		guardrail,
		encoder,
		reviewStore,
		productStore,
		llm,
		usecase.NewLexicalOverlapScorer(),
		m,
		log,
		usecase.QueryConfig{
			EmbeddingDim:     cfg.EmbeddingDim,
			DefaultTopK:      cfg.DefaultTopK,
			MaxTopK:          cfg.MaxTopK,
			OverlapThreshold: cfg.OverlapThreshold,
			AnswerMaxTokens:  cfg.AnswerMaxTokens,
			EmbedTimeout:     cfg.EmbedTimeout,
			RetrieveTimeout:  cfg.RetrieveTimeout,
			GenerateTimeout:  cfg.GenerateTimeout,
		},
	)

	ingestUsecase := usecase.NewIngestUsecase(
		encoder,
		reviewStore,
		productStore,
		txManager,
		log,
		usecase.IngestConfig{
			EmbeddingDim: cfg.EmbeddingDim,
			BatchSize:    cfg.IngestBatchSize,
			Concurrency:  cfg.IngestConcurrency,
		},
	)

	jobWorker := worker.NewJobWorker(jobRepo, ingestUsecase, log, cfg.WorkerPollInterval)

	return &ApplicationComponents{
		ReviewStore:   reviewStore,
		ProductStore:  productStore,
		JobRepo:       jobRepo,
		Encoder:       encoder,
		LLM:           llm,
		QueryUsecase:  queryUsecase,
		IngestUsecase: ingestUsecase,
		Worker:        jobWorker,
		Metrics:       m,
	}, nil
}
