package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	LedgerPath      string
	ResolveInterval time.Duration

	// NWS API configuration.
	NWSBaseURL    string
	NWSUserAgent  string
	NWSTimeout    time.Duration
	NWSMaxRetries int

	// Optional Kafka publishing of resolved outcomes.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaOutcomeTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	resolveInterval, err := parseDuration("RESOLVE_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}

	nwsTimeout, err := parseDuration("NWS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	maxRetries, err := parsePositiveInt("NWS_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		LedgerPath:      envOrDefault("LEDGER_PATH", "data/predictions.json"),
		ResolveInterval: resolveInterval,

		NWSBaseURL:    envOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent:  envOrDefault("NWS_USER_AGENT", "weather-oracle (contact: ops@northlakelabs.com)"),
		NWSTimeout:    nwsTimeout,
		NWSMaxRetries: maxRetries,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaOutcomeTopic: envOrDefault("KAFKA_OUTCOMES_TOPIC", "prediction-outcomes"),
	}

	if cfg.LedgerPath == "" {
		return nil, errors.New("LEDGER_PATH is required")
	}
	if cfg.NWSBaseURL == "" {
		return nil, errors.New("NWS_BASE_URL is required")
	}
	if cfg.NWSUserAgent == "" {
		return nil, errors.New("NWS_USER_AGENT is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if cfg.KafkaOutcomeTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_OUTCOMES_TOPIC is not set")
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

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
