package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shoprag/internal/domain"
	"shoprag/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	queryUsecase usecase.QueryUsecase
	jobRepo      domain.IngestJobRepository
	reviews      domain.ReviewStore
	products     domain.ProductStore
	encoder      domain.VectorEncoder
	llm          domain.LLMClient
	logger       *slog.Logger
}

func NewHandler(
	queryUsecase usecase.QueryUsecase,
	jobRepo domain.IngestJobRepository,
	reviews domain.ReviewStore,
	products domain.ProductStore,
	encoder domain.VectorEncoder,
	llm domain.LLMClient,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		queryUsecase: queryUsecase,
		jobRepo:      jobRepo,
		reviews:      reviews,
		products:     products,
		encoder:      encoder,
		llm:          llm,
		logger:       logger,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/query", h.HandleQuery)
	e.POST("/internal/ingest", h.HandleIngest)
	e.GET("/v1/status", h.HandleStatus)
}

type QueryRequest struct {
	Query       string `json:"query"`
	ProductASIN string `json:"product_asin"`
	TopK        int    `json:"top_k"`
}

type ProductPayload struct {
	ASIN          string  `json:"asin,omitempty"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	AverageRating float64 `json:"average_rating,omitempty"`
	RatingCount   int     `json:"rating_count,omitempty"`
}

type SourcePayload struct {
	ReviewID         string  `json:"review_id"`
	Text             string  `json:"text"`
	Rating           float64 `json:"rating"`
	VerifiedPurchase bool    `json:"verified_purchase"`
	Score            float32 `json:"score"`
}

type QueryResponse struct {
	Answer            string          `json:"answer"`
	Product           *ProductPayload `json:"product,omitempty"`
	NumDocumentsUsed  int             `json:"num_documents_used"`
	HallucinationFlag bool            `json:"hallucination_flag"`
	OverlapRatio      float64         `json:"overlap_ratio"`
	Sources           []SourcePayload `json:"sources"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) HandleQuery(ctx echo.Context) error {
	var req QueryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	requesterKey := ctx.Request().Header.Get("X-Requester-Id")
	if requesterKey == "" {
		requesterKey = ctx.RealIP()
	}

	result, err := h.queryUsecase.Execute(ctx.Request().Context(), usecase.QueryInput{
		Query:        req.Query,
		ProductASIN:  req.ProductASIN,
		TopK:         req.TopK,
		RequesterKey: requesterKey,
	})
	if err != nil {
		return h.writePipelineError(ctx, err)
	}

	sources := make([]SourcePayload, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		sources = append(sources, SourcePayload{
			ReviewID:         c.Chunk.ID.String(),
			Text:             c.Chunk.Text,
			Rating:           c.Chunk.Rating,
			VerifiedPurchase: c.Chunk.VerifiedPurchase,
			Score:            c.Score,
		})
	}

	resp := QueryResponse{
		Answer:            result.Answer,
		NumDocumentsUsed:  result.NumDocumentsUsed,
		HallucinationFlag: result.HallucinationFlag,
		OverlapRatio:      result.OverlapRatio,
		Sources:           sources,
	}
	if result.Product != nil {
		resp.Product = &ProductPayload{
			ASIN:          result.Product.ASIN,
			Title:         result.Product.Title,
			Category:      result.Product.Category,
			AverageRating: result.Product.AverageRating,
			RatingCount:   result.Product.RatingCount,
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (h *Handler) writePipelineError(ctx echo.Context, err error) error {
	var perr *domain.PipelineError
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error()}

	if errors.As(err, &perr) {
		resp.Stage = string(perr.Stage)
		resp.Kind = string(perr.Kind)
		switch perr.Kind {
		case domain.KindValidationRejected:
			status = http.StatusBadRequest
			resp.Error = perr.Reason
		case domain.KindRateLimited:
			status = http.StatusTooManyRequests
			resp.Error = perr.Reason
		case domain.KindEmbeddingFailure, domain.KindRetrievalFailure, domain.KindGenerationFailure:
			status = http.StatusBadGateway
			// Internal causes stay in the logs.
			resp.Error = perr.Reason
		}
	}

	if !domain.IsExpectedRejection(err) {
		h.logger.Error("query request failed", "error", err.Error())
	}
	return ctx.JSON(status, resp)
}

type IngestResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HandleIngest accepts a product with its raw reviews and queues an
// asynchronous ingestion job. The response carries the job id; the worker
// does the embedding and persistence.
func (h *Handler) HandleIngest(ctx echo.Context) error {
	var input usecase.IngestInput
	if err := ctx.Bind(&input); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if input.Product.ASIN == "" {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "product.asin is required"})
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to encode payload"})
	}

	now := time.Now()
	job := &domain.IngestJob{
		ID:        uuid.New(),
		JobType:   domain.JobTypeIngestReviews,
		Payload:   payload,
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		h.logger.Error("failed to enqueue ingest job", "error", err.Error())
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to enqueue job"})
	}

	return ctx.JSON(http.StatusAccepted, IngestResponse{
		JobID:  job.ID.String(),
		Status: job.Status,
	})
}

type StatusResponse struct {
	ReviewChunks    int    `json:"review_chunks"`
	Products        int    `json:"products"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
}

func (h *Handler) HandleStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	chunkCount, err := h.reviews.Count(reqCtx)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to count review chunks"})
	}
	productCount, err := h.products.Count(reqCtx)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to count products"})
	}

	return ctx.JSON(http.StatusOK, StatusResponse{
		ReviewChunks:    chunkCount,
		Products:        productCount,
		EmbeddingModel:  h.encoder.Version(),
		GenerationModel: h.llm.Version(),
	})
}
