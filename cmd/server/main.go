package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"shoprag/internal/adapter/httpapi"
	"shoprag/internal/di"
	"shoprag/internal/infra"
	"shoprag/internal/infra/config"
	"shoprag/internal/infra/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	slog.SetDefault(log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	components, err := di.NewApplicationComponents(cfg, dbPool, log)
	if err != nil {
		log.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	// The configured dimension must match what the embedding backend
	// actually produces, or every stored vector would be useless.
	if err := probeEmbeddingDim(components, cfg.EmbeddingDim); err != nil {
		log.Error("embedding dimension probe failed", "stage", "startup", "kind", "configuration_error", "error", err)
		os.Exit(1)
	}

	components.Worker.Start()
	defer components.Worker.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	handler := httpapi.NewHandler(
		components.QueryUsecase,
		components.JobRepo,
		components.ReviewStore,
		components.ProductStore,
		components.Encoder,
		components.LLM,
		log,
	)
	handler.Register(e)

	e.GET("/metrics", echo.WrapHandler(components.Metrics.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func probeEmbeddingDim(components *di.ApplicationComponents, want int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vectors, err := components.Encoder.Encode(ctx, []string{"dimension probe"})
	if err != nil {
		return fmt.Errorf("embedding backend unreachable: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("probe returned %d embeddings", len(vectors))
	}
	if len(vectors[0]) != want {
		return fmt.Errorf("backend produces %d-dimensional embeddings, configured for %d", len(vectors[0]), want)
	}
	return nil
}
