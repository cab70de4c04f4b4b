package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bloodroute/matchd/internal/cache"
	"github.com/bloodroute/matchd/internal/config"
	"github.com/bloodroute/matchd/internal/embedder"
	"github.com/bloodroute/matchd/internal/index"
	"github.com/bloodroute/matchd/internal/llm"
	"github.com/bloodroute/matchd/internal/metrics"
	"github.com/bloodroute/matchd/internal/repository"
	"github.com/bloodroute/matchd/internal/repository/postgres"
	"github.com/bloodroute/matchd/internal/reranker"
	"github.com/bloodroute/matchd/internal/server"
	"github.com/bloodroute/matchd/internal/service"
	"github.com/bloodroute/matchd/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting matching service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"data_path", cfg.DataPath,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	// Initialize repositories
	hospitalRepo := postgres.NewHospitalRepo(db)
	fingerprintRepo := postgres.NewFingerprintRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant")

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:          cfg.OllamaURL,
		Model:            cfg.OllamaEmbeddingModel,
		BatchConcurrency: cfg.EmbedConcurrency,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	// Initialize Ollama LLM and reranker
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaLLMModel),
	)
	rerank := reranker.NewLLMReranker(llmClient, reranker.WithModel(cfg.OllamaLLMModel))
	slog.Info("initialized Ollama LLM", "model", cfg.OllamaLLMModel)

	// Metrics registry
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Response cache, purged whenever a rebuild publishes a new snapshot
	responseCache := cache.NewStore[service.SuggestResponse](cfg.CacheTTL)

	// Build or reuse the vector index before serving
	indexMgr := index.NewManager(
		index.Config{DataPath: cfg.DataPath, OnRebuild: responseCache.Purge},
		embed, vectorStore, hospitalRepo, fingerprintRepo, m,
	)
	if err := indexMgr.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure index: %w", err)
	}
	slog.Info("index ready", "hospitals", indexMgr.Size())

	// Suggestion pipeline
	suggestSvc := service.NewSuggestService(indexMgr, rerank, responseCache, m, service.Options{
		TopKRetrieve:          cfg.TopKRetrieve,
		TopNDefault:           cfg.TopNReturn,
		CityPriorityWeight:    cfg.CityPriorityWeight,
		DistancePenaltyWeight: cfg.DistancePenaltyWeight,
	})

	// Create HTTP server
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Gatherer:       registry,
	}, suggestSvc, indexMgr)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.HospitalRepository    = (*postgres.HospitalRepo)(nil)
	_ repository.FingerprintRepository = (*postgres.FingerprintRepo)(nil)
	_ vectorstore.VectorStore          = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder                = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM                          = (*llm.OllamaClient)(nil)
	_ reranker.Reranker                = (*reranker.LLMReranker)(nil)
	_ service.Retriever                = (*index.Manager)(nil)
	_ server.Suggester                 = (*service.SuggestService)(nil)
	_ server.ReadyChecker              = (*index.Manager)(nil)
)
