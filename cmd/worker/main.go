package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/config"
	amqpdelivery "github.com/harborai/beacon/internal/delivery/amqp"
	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/pool"
	"github.com/harborai/beacon/internal/registry"
	"github.com/harborai/beacon/internal/store"
	memorystore "github.com/harborai/beacon/internal/store/memory"
	postgresstore "github.com/harborai/beacon/internal/store/postgres"
	redisstore "github.com/harborai/beacon/internal/store/redis"
	"github.com/harborai/beacon/internal/track"
	"github.com/harborai/beacon/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Beacon Worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The worker must share the store with the API server: memory only works
	// for single-process deployments.
	if cfg.Store.Backend == "memory" {
		logger.Warn("Memory store backend selected; progress records are not shared across processes")
	}

	progressStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize progress store", zap.Error(err))
	}
	defer cleanup()
	logger.Info("Progress store initialized", zap.String("backend", cfg.Store.Backend))

	// Initialize tracker and handler registry
	tracker := track.NewTracker(progressStore, logger)
	reg := registry.New()
	registerHandlers(reg)
	logger.Info("Job handlers registered", zap.Strings("types", reg.Types()))

	// Initialize use case
	executeUC := usecase.NewExecuteJobUsecase(tracker, reg, logger)

	// Create buffered job channel
	jobsChan := make(chan *domain.Delivery, cfg.Worker.PoolSize*2)

	// Initialize AMQP consumer
	consumer, err := amqpdelivery.NewConsumer(cfg.RabbitMQ.URL, jobsChan, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AMQP consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	// Start worker pool
	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, jobsChan, executeUC, logger)
	workerPool.Start(ctx)

	// Start AMQP consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("AMQP consumer error", zap.Error(err))
			cancel()
		}
	}()

	// Start Prometheus metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	// Wait for workers to finish in-flight jobs
	workerPool.Stop()

	logger.Info("Worker stopped")
}

// registerHandlers binds the job types this worker executes. Product job
// handlers (project import/export, deployment provisioning, table
// generation) register here; echo stays as a deployment smoke test.
func registerHandlers(reg *registry.Registry) {
	reg.Register("echo", func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if payload == nil {
			payload = json.RawMessage(`{}`)
		}
		return payload, nil
	})
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
