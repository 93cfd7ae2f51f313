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

	"shop-analytics/config"
	"shop-analytics/internal/api"
	"shop-analytics/internal/broker"
	"shop-analytics/internal/llm"
	"shop-analytics/internal/mockdata"
	"shop-analytics/internal/redisclient"
	"shop-analytics/internal/service"
	"shop-analytics/internal/store"
	"shop-analytics/internal/util"
	"shop-analytics/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// repository is a service.Repository with a lifecycle
type repository interface {
	service.Repository
	Migrate(ctx context.Context) error
	Close() error
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop analytics service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := openRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Store ready", zap.String("backend", cfg.Database.Backend))

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStoreEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	completer := newCompleter(cfg.LLM, logger)

	seed, err := mockdata.DefaultSeed()
	if err != nil {
		log.Fatalf("Failed to load mock seed: %v", err)
	}
	generator := mockdata.NewGenerator(seed, cfg.Pipeline.MockOrderCount, nil)

	storeService := service.NewStoreService(db, redisClient, eventPublisher, generator)
	analyticsService := service.NewAnalyticsService(db, redisClient,
		cfg.Pipeline.AnalyticsCacheTTL, cfg.Pipeline.DefaultWindowDays, cfg.Pipeline.LowStockDays)
	questionService := service.NewQuestionService(db, redisClient, eventPublisher, completer, service.QuestionOptions{
		LLMTimeout:          cfg.LLM.CallTimeout,
		DefaultWindowDays:   cfg.Pipeline.DefaultWindowDays,
		LowStockDays:        cfg.Pipeline.LowStockDays,
		HistoryDefaultLimit: cfg.Pipeline.HistoryDefaultLimit,
		HistoryMaxLimit:     cfg.Pipeline.HistoryMaxLimit,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	refreshConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStoreEvents, cfg.Kafka.ConsumerGroup)
	refreshWorker := worker.NewRefreshWorker(refreshConsumer, storeService)
	go func() {
		if err := refreshWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Refresh worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(storeService, analyticsService, questionService, map[string]api.Pinger{
		"database": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: corsHandler(router),
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := refreshWorker.Stop(); err != nil {
		logger.Warn("Error stopping refresh worker", zap.Error(err))
	}
	if c, ok := completer.(*llm.GeminiCompleter); ok {
		_ = c.Close()
	}

	logger.Info("Server exited")
}

func openRepository(cfg config.DatabaseConfig) (repository, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "postgres", "":
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}
}

// newCompleter falls back to a model that always fails when no key is set,
// so every question is answered from the computed figures alone
func newCompleter(cfg config.LLMConfig, logger *zap.Logger) llm.Completer {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, answers will not be phrased by a model")
		return llm.Unavailable{}
	}
	c, err := llm.NewGeminiCompleter(context.Background(), cfg.APIKey, cfg.Model)
	if err != nil {
		logger.Error("Failed to create Gemini client, continuing without a model", zap.Error(err))
		return llm.Unavailable{}
	}
	return c
}
