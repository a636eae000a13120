package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insightchat-backend/internal/charts"
	"insightchat-backend/internal/config"
	"insightchat-backend/internal/conversation"
	"insightchat-backend/internal/database"
	"insightchat-backend/internal/handlers"
	"insightchat-backend/internal/middleware"
	"insightchat-backend/internal/quota"
	"insightchat-backend/internal/repository"
	"insightchat-backend/internal/router"
	"insightchat-backend/internal/services"
	"insightchat-backend/internal/websocket"
	"insightchat-backend/internal/worker"
	"insightchat-backend/migrations"
)

func main() {
	log.Println("🚀 Starting InsightChat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(context.Background(), pool, migrations.FS); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Initialize Services ────
	presentation := charts.InitPresentation()
	datasetRepo := repository.NewDatasetRepo(pool)
	publisher := services.NewPublisher(redisClients.Queue)
	quotaGate := quota.NewGate(quota.NewHTTPUsageClient(cfg.UsageServiceURL, 10*time.Second), cfg.QuotaRetryDelay)

	var rawSource conversation.RawDataSource = datasetRepo
	if cfg.DataServiceURL != "" {
		rawSource = services.NewRawDataClient(cfg.DataServiceURL, cfg.DataServiceToken, 30*time.Second)
		log.Printf("✓ Raw records served by %s", cfg.DataServiceURL)
	}

	store := conversation.NewStore(conversation.Deps{
		Model:     geminiService,
		Quota:     quotaGate,
		RawData:   rawSource,
		Publisher: publisher,
		Limits: conversation.Limits{
			QuotaMaxRetries: cfg.QuotaMaxRetries,
			RawMaxRows:      cfg.RawDataMaxRows,
			RawMaxChars:     cfg.RawDataMaxChars,
			HistoryMessages: cfg.HistoryMaxMessages,
		},
	})

	// ──── Step 6: Start Analysis Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, rawSource, datasetRepo, store, publisher, cfg.AnalysisWorkers)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.AnalysisWorkers)

	// ──── Step 7: Start WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	r := router.New(jwtAuth, router.Handlers{
		Conversation: handlers.NewConversationHandler(store, datasetRepo),
		Dataset:      handlers.NewDatasetHandler(datasetRepo, redisClients),
		Extract:      handlers.NewExtractHandler(presentation),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    redisClients,
		}),
		WebSocket: wsHub,
	}, limiter, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // model replies can be slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		limiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ InsightChat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
