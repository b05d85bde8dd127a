package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL      string
	EmbeddingModel string
	EmbeddingDim   int
	EmbedTimeout   time.Duration

	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	GenerateTimeout time.Duration
	AnswerMaxTokens int

	MinQueryLength   int
	MaxQueryLength   int
	RateLimitMax     int
	RateLimitWindow  time.Duration
	DefaultTopK      int
	MaxTopK          int
	MaxDistance      float64
	MinReviewLength  int
	OverlapThreshold float64

	ProductCacheSize int

	RetrieveTimeout    time.Duration
	IngestBatchSize    int
	IngestConcurrency  int
	WorkerPollInterval time.Duration
}

func Load() *Config {
	// Best effort; env vars win over .env entries.
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "shoprag_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "shoprag_password"),
		DBName:     getEnv("DB_NAME", "shoprag_db"),

		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "bge-small-en-v1.5"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 384),
		EmbedTimeout:   getEnvDuration("EMBED_TIMEOUT_SECONDS", 30),

		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:       getSecret("LLM_API_KEY", "LLM_API_KEY_FILE", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		GenerateTimeout: getEnvDuration("GENERATE_TIMEOUT_SECONDS", 60),
		AnswerMaxTokens: getEnvInt("ANSWER_MAX_TOKENS", 500),

		MinQueryLength:   getEnvInt("MIN_QUERY_LENGTH", 3),
		MaxQueryLength:   getEnvInt("MAX_QUERY_LENGTH", 500),
		RateLimitMax:     getEnvInt("RATE_LIMIT_MAX_REQUESTS", 20),
		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW_SECONDS", 60),
		DefaultTopK:      getEnvInt("DEFAULT_TOP_K", 5),
		MaxTopK:          getEnvInt("MAX_TOP_K", 20),
		MaxDistance:      getEnvFloat("RETRIEVAL_MAX_DISTANCE", 0.65),
		MinReviewLength:  getEnvInt("RETRIEVAL_MIN_REVIEW_LENGTH", 30),
		OverlapThreshold: getEnvFloat("HALLUCINATION_THRESHOLD", 0.3),

		ProductCacheSize: getEnvInt("PRODUCT_CACHE_SIZE", 1024),

		RetrieveTimeout:    getEnvDuration("RETRIEVE_TIMEOUT_SECONDS", 10),
		IngestBatchSize:    getEnvInt("INGEST_BATCH_SIZE", 32),
		IngestConcurrency:  getEnvInt("INGEST_CONCURRENCY", 4),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL_SECONDS", 5),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackSeconds)) * time.Second
}
