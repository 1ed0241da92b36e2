package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "data", cfg.DataDir)
		assert.Equal(t, "cache", cfg.CacheDir)
		assert.Equal(t, "web", cfg.WebDir)
		assert.Empty(t, cfg.HTTPAddr)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, time.Minute, cfg.FetchTimeout)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		assert.False(t, cfg.KafkaEnabled)
		assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "classified-crash-features", cfg.KafkaTopic)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("DATA_DIR", "/var/lib/crashes")
		t.Setenv("HTTP_ADDR", ":8080")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("FETCH_TIMEOUT", "2m")
		t.Setenv("KAFKA_ENABLED", "true")
		t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/crashes", cfg.DataDir)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 2*time.Minute, cfg.FetchTimeout)
		assert.True(t, cfg.KafkaEnabled)
		assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("invalid fetch timeout errors", func(t *testing.T) {
		t.Setenv("FETCH_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive timeout errors", func(t *testing.T) {
		t.Setenv("SHUTDOWN_TIMEOUT", "-5s")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("kafka enabled without brokers errors", func(t *testing.T) {
		t.Setenv("KAFKA_ENABLED", "true")
		t.Setenv("KAFKA_BROKERS", " , ")
		_, err := Load()
		assert.Error(t, err)
	})
}
