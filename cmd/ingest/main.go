package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"shoprag/internal/di"
	"shoprag/internal/domain"
	"shoprag/internal/infra"
	"shoprag/internal/infra/config"
	"shoprag/internal/infra/logger"
	"shoprag/internal/usecase"
)

// productLine mirrors one record of the product metadata JSONL dump.
type productLine struct {
	ParentASIN    string   `json:"parent_asin"`
	Title         string   `json:"title"`
	MainCategory  string   `json:"main_category"`
	AverageRating float64  `json:"average_rating"`
	RatingNumber  int      `json:"rating_number"`
	Price         string   `json:"price"`
	Features      []string `json:"features"`
	Description   []string `json:"description"`
}

// reviewLine mirrors one record of the reviews JSONL dump. Timestamp is
// epoch milliseconds.
type reviewLine struct {
	ParentASIN       string  `json:"parent_asin"`
	Title            string  `json:"title"`
	Text             string  `json:"text"`
	Rating           float64 `json:"rating"`
	VerifiedPurchase bool    `json:"verified_purchase"`
	HelpfulVote      int     `json:"helpful_vote"`
	Timestamp        int64   `json:"timestamp"`
}

var rootCmd = &cobra.Command{
	Use:   "shoprag-ingest",
	Short: "Load product review datasets into the retrieval store",
	Long: `Bulk-load product metadata and customer reviews from JSONL dumps,
embedding each eligible review on the way in.

Examples:
  shoprag-ingest run --products meta.jsonl --reviews reviews.jsonl
  shoprag-ingest run --products meta.jsonl --reviews reviews.jsonl --dry-run
  shoprag-ingest status`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest products and reviews from JSONL files",
	RunE:  runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)

	runCmd.Flags().String("products", "", "path to product metadata JSONL (required)")
	runCmd.Flags().String("reviews", "", "path to reviews JSONL (required)")
	runCmd.Flags().Int("batch-size", 0, "embedding batch size override")
	runCmd.Flags().Bool("dry-run", false, "parse and report without writing anything")
	_ = runCmd.MarkFlagRequired("products")
	_ = runCmd.MarkFlagRequired("reviews")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	productsPath, _ := cmd.Flags().GetString("products")
	reviewsPath, _ := cmd.Flags().GetString("reviews")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	products, err := loadProducts(productsPath)
	if err != nil {
		return err
	}
	reviewsByASIN, err := loadReviews(reviewsPath)
	if err != nil {
		return err
	}

	if dryRun {
		totalReviews := 0
		eligible := 0
		for _, reviews := range reviewsByASIN {
			totalReviews += len(reviews)
			for _, r := range reviews {
				if domain.ShouldIncludeReview(r.Text, r.Rating) {
					eligible++
				}
			}
		}
		fmt.Printf("dry run: %d products, %d reviews (%d eligible)\n", len(products), totalReviews, eligible)
		return nil
	}

	cfg := config.Load()
	if batchSize > 0 {
		cfg.IngestBatchSize = batchSize
	}
	log := logger.New()
	slog.SetDefault(log)

	components, pool, err := wireComponents(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	start := time.Now()
	totalChunks := 0
	for _, product := range products {
		input := usecase.IngestInput{
			Product: product,
			Reviews: reviewsByASIN[product.ASIN],
		}
		stats, err := components.IngestUsecase.Ingest(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", product.ASIN, err)
		}
		totalChunks += stats.ChunksInserted
		fmt.Printf("%s: %d reviews seen, %d skipped, %d chunks inserted\n",
			product.ASIN, stats.ReviewsSeen, stats.ReviewsSkipped, stats.ChunksInserted)
	}

	fmt.Printf("done: %d products, %d chunks in %s\n", len(products), totalChunks, time.Since(start).Round(time.Second))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logger.New()

	components, pool, err := wireComponents(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	chunkCount, err := components.ReviewStore.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count review chunks: %w", err)
	}
	productCount, err := components.ProductStore.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}

	fmt.Printf("products:      %d\n", productCount)
	fmt.Printf("review chunks: %d\n", chunkCount)
	fmt.Printf("embedder:      %s\n", components.Encoder.Version())
	return nil
}

func wireComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*di.ApplicationComponents, *pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	components, err := di.NewApplicationComponents(cfg, pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return components, pool, nil
}

func loadProducts(path string) ([]domain.Product, error) {
	var products []domain.Product
	err := eachJSONLine(path, func(line []byte) error {
		var p productLine
		if err := json.Unmarshal(line, &p); err != nil {
			return err
		}
		if p.ParentASIN == "" {
			return nil
		}
		products = append(products, domain.Product{
			ASIN:          p.ParentASIN,
			Title:         p.Title,
			Category:      p.MainCategory,
			AverageRating: p.AverageRating,
			RatingCount:   p.RatingNumber,
			Price:         p.Price,
			Features:      p.Features,
			Description:   strings.Join(p.Description, " "),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load products from %s: %w", path, err)
	}
	return products, nil
}

func loadReviews(path string) (map[string][]usecase.ReviewInput, error) {
	reviews := make(map[string][]usecase.ReviewInput)
	err := eachJSONLine(path, func(line []byte) error {
		var r reviewLine
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		if r.ParentASIN == "" {
			return nil
		}
		reviews[r.ParentASIN] = append(reviews[r.ParentASIN], usecase.ReviewInput{
			Title:            r.Title,
			Text:             r.Text,
			Rating:           r.Rating,
			VerifiedPurchase: r.VerifiedPurchase,
			HelpfulVotes:     r.HelpfulVote,
			ReviewedAt:       time.UnixMilli(r.Timestamp).UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews from %s: %w", path, err)
	}
	return reviews, nil
}

func eachJSONLine(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}
