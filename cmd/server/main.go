package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/config"
	handler "github.com/harborai/beacon/internal/delivery/http"
	"github.com/harborai/beacon/internal/publisher"
	"github.com/harborai/beacon/internal/query"
	"github.com/harborai/beacon/internal/store"
	memorystore "github.com/harborai/beacon/internal/store/memory"
	postgresstore "github.com/harborai/beacon/internal/store/postgres"
	redisstore "github.com/harborai/beacon/internal/store/redis"
	"github.com/harborai/beacon/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Beacon API Server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	progressStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize progress store", zap.Error(err))
	}
	defer cleanup()
	logger.Info("Progress store initialized", zap.String("backend", cfg.Store.Backend))

	// Initialize RabbitMQ publisher
	pub, err := publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Initialize use cases
	submitUC := usecase.NewSubmitJobUsecase(progressStore, pub, logger)
	queryService := query.NewService(progressStore, logger)

	// Initialize router
	router := handler.NewRouter(&handler.RouterDeps{
		SubmitUC:        submitUC,
		QueryService:    queryService,
		Logger:          logger,
		RateLimitPerMin: cfg.Server.RateLimit,
		MaxPayloadBytes: cfg.Server.MaxPayloadBytes,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

// buildStore constructs the configured progress store backend and returns a
// cleanup function releasing its resources.
func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.ProgressStore, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		st := memorystore.New(cfg.Store.Retention, logger)
		return st, st.Close, nil

	case "redis":
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.New(client, cfg.Store.Retention), func() { client.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		st := postgresstore.New(pool, cfg.Store.Retention)
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
