package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eventhub", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "async", cfg.Stats.Dispatch)
	assert.Equal(t, 5, cfg.Booking.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Booking.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "SERVER_PORT=9191\nKAFKA_BROKERS=a:9092, b:9092\nSTATS_DISPATCH=inline\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "inline", cfg.Stats.Dispatch)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:     AppConfig{Name: "eventhub", Environment: "development"},
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: "postgres"},
			Stats:   StatsConfig{Dispatch: "inline"},
			Booking: BookingConfig{MaxRetries: 3, Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"kafka dispatch without kafka", func(c *Config) { c.Stats.Dispatch = "kafka" }, true},
		{"kafka dispatch with kafka", func(c *Config) {
			c.Stats.Dispatch = "kafka"
			c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}}
		}, false},
		{"negative retries", func(c *Config) { c.Booking.MaxRetries = -1 }, true},
		{"zero timeout", func(c *Config) { c.Booking.Timeout = 0 }, true},
		{"production without secret", func(c *Config) { c.App.Environment = "production" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
