package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/eventhub/migrations"
	"github.com/prohmpiriya/eventhub/pkg/config"
	"github.com/prohmpiriya/eventhub/pkg/database"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/redis"
)

// PostgresConfig maps the application config onto the pool settings
func PostgresConfig(cfg *config.Config) *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
}

// RedisConfig maps the application config onto the client settings
func RedisConfig(cfg *config.Config) *redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	return rc
}

// ProducerConfig maps the application config onto the Kafka producer settings
func ProducerConfig(cfg *config.Config, clientID string) *kafka.ProducerConfig {
	return &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// OpenPostgres connects and applies pending migrations when AutoMigrate is set
func OpenPostgres(ctx context.Context, cfg *config.Config) (*database.PostgresDB, error) {
	db, err := database.NewPostgres(ctx, PostgresConfig(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.Pool()); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return db, nil
}
