package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	Currency           string
	CommissionPercent  int
	PaymentTimeout     time.Duration
	SweepInterval      time.Duration
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "rentloop"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		Currency:         getEnv("CURRENCY", "TND"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	commission, err := parseIntEnv("COMMISSION_PERCENT", 10)
	if err != nil {
		return Config{}, err
	}
	if commission < 0 || commission > 100 {
		return Config{}, fmt.Errorf("COMMISSION_PERCENT out of range: %d", commission)
	}
	cfg.CommissionPercent = commission

	paymentTimeout, err := parseDurationEnv("PAYMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.PaymentTimeout = paymentTimeout

	sweep, err := parseDurationEnv("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = sweep

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	switch cfg.StorageMode {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE: %q", cfg.StorageMode)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}
