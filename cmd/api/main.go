package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/api/handlers"
	"github.com/ragplus/backend/internal/cache/redis"
	"github.com/ragplus/backend/internal/engine"
	"github.com/ragplus/backend/internal/ingestion"
	"github.com/ragplus/backend/internal/llm"
	"github.com/ragplus/backend/internal/metrics"
	"github.com/ragplus/backend/internal/middleware/ratelimit"
	"github.com/ragplus/backend/internal/middleware/security"
	"github.com/ragplus/backend/internal/middleware/validation"
	"github.com/ragplus/backend/internal/retrieval"
	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/internal/vector"
	"github.com/ragplus/backend/internal/vector/milvus"
	"github.com/ragplus/backend/pkg/config"
	appLogger "github.com/ragplus/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting analytical reasoning API server")

	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	ingestor := ingestion.NewIngestor(store, &cfg.Corpus)
	if err := ingestor.EnsureCorpus(); err != nil {
		appLogger.Fatal("Failed to load corpus", zap.Error(err))
	}
	if points, err := store.CountPoints(); err == nil {
		metrics.CorpusPoints.Set(float64(points))
	}

	llmClient := llm.NewClient(&cfg.LLM)

	ctx := context.Background()

	var index vector.Index
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(ctx, &cfg.Milvus, llmClient)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		defer milvusClient.Close()
		if err := milvusClient.EnsureCollection(ctx); err != nil {
			appLogger.Fatal("Failed to ensure Milvus collection", zap.Error(err))
		}
		index = milvusClient
	} else {
		index = vector.NewMemoryIndex(llmClient)
	}

	if err := ingestor.EnsureKnowledge(ctx, index); err != nil {
		appLogger.Warn("Failed to seed knowledge index", zap.Error(err))
	}
	if facts, err := index.Count(ctx); err == nil {
		metrics.KnowledgeFacts.Set(float64(facts))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without query cache", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			llmClient.SetEmbedCache(cache)
		}
	}

	sources := []retrieval.Source{
		retrieval.NewSemanticSource(index, cfg.Retrieval.TopK, cfg.Retrieval.SimilarityFloor),
		retrieval.NewStructuredSource(store),
		retrieval.NewStatisticalSource(store, cfg.Retrieval.AnomalyZScore, cfg.Retrieval.BaselineWindow),
	}
	coordinator := retrieval.NewCoordinator(sources, time.Duration(cfg.Retrieval.SourceTimeoutSec)*time.Second)

	eng := engine.New(cfg, coordinator, store, cache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{IsDevelopment: true}))

	limiter := ratelimit.New(ratelimit.Config{RequestsPerWindow: 60, Window: time.Minute})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{MaxQueryLength: 2000}))

	queryHandler := handlers.NewQueryHandler(eng)
	corpusHandler := handlers.NewCorpusHandler(store, index)
	healthHandler := handlers.NewHealthHandler(store, cache, index)
	wsHandler := handlers.NewWebSocketHandler(eng, llmClient)

	api := app.Group("/api/v1")
	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)
	api.Get("/corpus/stats", corpusHandler.GetStats)
	api.Get("/health", healthHandler.Health)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/chat", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
