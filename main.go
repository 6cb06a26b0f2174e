package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/di"
	"github.com/prohmpiriya/eventhub/internal/handler"
	"github.com/prohmpiriya/eventhub/pkg/config"
	"github.com/prohmpiriya/eventhub/pkg/database"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/redis"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting eventhub API", zap.String("storage", cfg.Storage.Driver), zap.String("stats_dispatch", cfg.Stats.Dispatch))

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}
	if err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		appLog.Info("Telemetry initialized", zap.String("collector", telemetryCfg.CollectorAddr))
	}
	defer func() { _ = telemetry.Shutdown(ctx) }()

	// Postgres is required unless the in-memory store is selected
	var db *database.PostgresDB
	if cfg.Storage.Driver == "postgres" {
		db, err = di.OpenPostgres(ctx, cfg)
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected", zap.Int("max_conns", cfg.Database.MaxConns))
	}

	// Redis is optional: without it the event cache and idempotency replay are off
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := di.RedisConfig(cfg)
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn("Redis connection failed (caching disabled)", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
		}
	}

	// Kafka is optional unless stats jobs are dispatched through it.
	// The producer is closed by the container's publisher.
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(ctx, di.ProducerConfig(cfg, cfg.Kafka.ClientID))
		if err != nil {
			if cfg.Stats.Dispatch == "kafka" {
				appLog.Fatal("Kafka connection failed", zap.Error(err))
			}
			appLog.Warn("Kafka connection failed (domain events disabled)", zap.Error(err))
			producer = nil
		} else {
			appLog.Info("Kafka producer connected", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	}

	// Build dependency injection container
	container, err := di.NewContainer(ctx, &di.ContainerConfig{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Producer: producer,
	})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(container.Handlers, container.RouterConfig())

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("eventhub API listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	// drain queued statistics after the last request has finished
	if err := container.Close(shutdownCtx); err != nil {
		appLog.Error("Failed to close container", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
