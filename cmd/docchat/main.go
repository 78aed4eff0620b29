package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/config"
	"github.com/kailas-cloud/docchat/internal/db"
	dbValkey "github.com/kailas-cloud/docchat/internal/db/valkey"
	"github.com/kailas-cloud/docchat/internal/domain"
	logpkg "github.com/kailas-cloud/docchat/internal/logger"
	"github.com/kailas-cloud/docchat/internal/metrics"
	chunkrepo "github.com/kailas-cloud/docchat/internal/repository/chunk"
	"github.com/kailas-cloud/docchat/internal/repository/embcache"
	uploadrepo "github.com/kailas-cloud/docchat/internal/repository/upload"
	"github.com/kailas-cloud/docchat/internal/text"
	chiTransport "github.com/kailas-cloud/docchat/internal/transport/chi"
	"github.com/kailas-cloud/docchat/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/docchat/internal/transport/openai"
	"github.com/kailas-cloud/docchat/internal/transport/unipdf"
	chatuc "github.com/kailas-cloud/docchat/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/docchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docchat/internal/usecase/ingest"
	"github.com/kailas-cloud/docchat/internal/version"
)

// completer is what both completion providers offer.
type completer interface {
	chatuc.Completer
	domain.HealthChecker
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("completion_provider", cfg.Completion.Provider),
	)

	// Valkey and Redis speak the same protocol and FT dialect; one store serves both drivers.
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.Register()

	var chunkOpts []chunkrepo.Option
	if cfg.Ingestion.PruneStale {
		chunkOpts = append(chunkOpts, chunkrepo.WithStalePruning())
	}
	chunks := chunkrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions, chunkrepo.HNSWConfig{
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
	}, chunkOpts...)
	if err := chunks.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure chunk index", zap.Error(err))
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		Provider:   "openai",
		Logger:     logger,
	})
	embedder := buildEmbedder(base, store, &cfg, logger)

	comp, err := buildCompleter(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}

	extractor, err := unipdf.New(cfg.PDF.LicenseKey)
	if err != nil {
		logger.Fatal("Failed to initialize PDF extractor", zap.Error(err))
	}

	uploads, err := uploadrepo.New(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("Failed to prepare upload storage", zap.Error(err))
	}

	queue := ingestuc.NewQueue(cfg.Ingestion.Workers, cfg.Ingestion.QueueSize,
		ingestuc.WithQueueLogger(logger.Named("indexer")))

	ingestSvc := ingestuc.New(
		uploads, extractor, text.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedder, chunks, queue,
		ingestuc.WithLogger(logger),
	)
	chatSvc := chatuc.New(embedder, chunks, comp,
		chatuc.WithTopK(cfg.Retrieval.TopK),
		chatuc.WithMinRelevance(cfg.Retrieval.MinRelevance),
		chatuc.WithHistoryWindow(cfg.Retrieval.HistoryWindow),
		chatuc.WithLogger(logger),
	)
	healthSvc := healthuc.New(store, base, comp)

	var watcher *ingestuc.Watcher
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Ingestion.InboxDir != "" {
		watcher, err = ingestuc.NewWatcher(cfg.Ingestion.InboxDir, uploads, ingestSvc, 0, logger.Named("inbox"))
		if err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		go watcher.Run(watchCtx)
	}

	server := chiTransport.NewServer(chatSvc, ingestSvc, healthSvc, logger,
		chiTransport.WithExposeSources(cfg.Retrieval.ExposeSources),
		chiTransport.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
	)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiTransport.BearerAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	stopWatch()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Error("Error closing inbox watcher", zap.Error(err))
		}
	}

	if err := queue.Close(shutdownCtx); err != nil {
		logger.Warn("Indexing tasks abandoned at shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Normalizing.
func buildEmbedder(base domain.Embedder, store db.KVStore, cfg *config.Config, logger *zap.Logger) *domain.NormalizingEmbedder {
	embedder := base
	if cfg.Embedding.Cache {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, "openai", cfg.Embedding.Model, logger)

	// Normalization is outermost so cached vectors stay as the provider returned them.
	return domain.NewNormalizingEmbedder(embedder)
}

func buildCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (completer, error) {
	switch cfg.Completion.Provider {
	case "gemini":
		c, err := gemini.NewCompleter(ctx, &gemini.Config{
			APIKey:  cfg.Completion.APIKey,
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return c, nil
	default:
		return openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:   cfg.Completion.APIKey,
			BaseURL:  cfg.Completion.BaseURL,
			Model:    cfg.Completion.Model,
			Provider: cfg.Completion.Provider,
			Logger:   logger,
		}), nil
	}
}
