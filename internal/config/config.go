package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// DataDir receives snapshots and holds manually downloaded extracts.
	DataDir string
	// CacheDir holds fetched raw extracts, keyed by resource name.
	CacheDir string
	// WebDir receives the exported web bundles.
	WebDir string

	// HTTPAddr serves /healthz, /readyz, and /metrics during a run.
	// Empty disables the server; batch runs rarely need it.
	HTTPAddr string

	LogLevel  string
	LogFormat string

	FetchTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Kafka sink configuration. Disabled by default; when enabled, every
	// exported feature is also published to the sink topic.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         envOrDefault("DATA_DIR", "data"),
		CacheDir:        envOrDefault("CACHE_DIR", "cache"),
		WebDir:          envOrDefault("WEB_DIR", "web"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		FetchTimeout:    fetchTimeout,
		ShutdownTimeout: shutdownTimeout,
		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "classified-crash-features"),
	}

	if cfg.DataDir == "" || cfg.CacheDir == "" || cfg.WebDir == "" {
		return nil, errors.New("DATA_DIR, CACHE_DIR, and WEB_DIR must not be empty")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
