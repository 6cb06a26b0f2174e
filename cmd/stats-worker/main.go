package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/di"
	"github.com/prohmpiriya/eventhub/internal/repository"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/internal/worker"
	"github.com/prohmpiriya/eventhub/pkg/config"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/redis"
	"github.com/prohmpiriya/eventhub/pkg/retry"
)

func main() {
	resync := flag.Bool("resync", false, "recompute every derived statistic and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "stats-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting stats worker...", zap.Bool("resync", *resync))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := di.OpenPostgres(ctx, cfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	repos := repository.NewPostgresRepositories(db.Pool())

	// Redis only serves cache invalidation here
	var invalidator service.CacheInvalidator
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, di.RedisConfig(cfg))
		if err != nil {
			appLog.Warn("Redis connection failed (cache invalidation disabled)", zap.Error(err))
		} else {
			defer redisClient.Close()
			invalidator = repository.NewCachedEventRepository(repos.Events, redisClient, cfg.Cache.EventTTL)
		}
	}

	maintainer := service.NewStatsMaintainer(repos.Stats, invalidator, clock.NewSystem(), cfg.Stats.Workers)

	if *resync {
		started := time.Now()
		if err := maintainer.RecomputeAll(ctx); err != nil {
			appLog.Fatal("Resync failed", zap.Error(err))
		}
		appLog.Info("Resync complete", zap.Duration("took", time.Since(started)))
		return
	}

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topics:         []string{cfg.Stats.Topic},
		ClientID:       "stats-worker",
		MaxRetries:     3,
		RetryInterval:  2 * time.Second,
		SessionTimeout: 30 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	producer, err := kafka.NewProducer(ctx, di.ProducerConfig(cfg, "stats-worker-dlq"))
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka connected", zap.String("topic", cfg.Stats.Topic))

	statsConsumer := worker.NewStatsConsumer(worker.StatsConsumerConfig{
		Retry: &retry.Config{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
		PollBackoff: 2 * time.Second,
	}, consumer, maintainer, worker.NewKafkaDeadLetterSink(producer))

	done := make(chan error, 1)
	go func() { done <- statsConsumer.Run(ctx) }()
	appLog.Info("Stats worker started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		appLog.Info("Shutting down stats worker...")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			appLog.Error("Stats consumer exited", zap.Error(err))
		}
	}
	appLog.Info("Stats worker stopped")
}
