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
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/api/handlers"
	"github.com/adgraph/backend/internal/cache/redis"
	"github.com/adgraph/backend/internal/graph/neo4j"
	"github.com/adgraph/backend/internal/llm"
	"github.com/adgraph/backend/internal/metrics"
	"github.com/adgraph/backend/internal/middleware/ratelimit"
	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/internal/storage/sqlite"
	"github.com/adgraph/backend/internal/vector/milvus"
	"github.com/adgraph/backend/pkg/config"
	appLogger "github.com/adgraph/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting AdGraph API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	graphClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
	}
	defer graphClient.Close(context.Background())

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	var searcher rag.EntitySearcher
	if cfg.Milvus.Enabled {
		index, err := milvus.NewIndex(
			cfg.Milvus.Endpoint,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
			llmClient,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus index", zap.Error(err))
		}
		defer index.Close()

		if err := index.CreateCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to create collection", zap.Error(err))
		}

		searcher = index
	}

	var cache handlers.ResponseCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		cache = redisClient
	}

	retriever := rag.NewRetriever(graphClient, searcher, cfg.RAG.MaxQueryResults)
	scorer := rag.NewScorer(cfg.RAG.ConfidenceThreshold)
	memory := rag.NewConversationMemory(cfg.RAG.MaxTurns)

	policy := rag.DefaultFollowUpPolicy()
	if len(cfg.RAG.FollowUpIndicators) > 0 {
		policy = rag.FollowUpPolicy{Indicators: cfg.RAG.FollowUpIndicators}
	}

	engine := rag.NewEngine(retriever, scorer, memory, llmClient, policy, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	queryHandler := handlers.NewQueryHandler(engine, sqliteClient, cache)
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1", limiter.Middleware())

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)
	api.Post("/feedback", queryHandler.HandleFeedback)
	api.Delete("/sessions/:id", queryHandler.ClearSession)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

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
