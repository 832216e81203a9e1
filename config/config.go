package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP server
	ServerAddr  string
	MetricsAddr string

	// Market data API
	MarketDataBaseURL string
	MarketDataAPIKey  string

	// Infrastructure
	RedisAddr     string // empty = snapshot cache disabled
	RedisPassword string
	JournalPath   string

	// Strategy loop
	CycleIntervalS int
	AlertWebhook   string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8000"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		MarketDataBaseURL: getEnv("MARKETDATA_BASE_URL", "https://api.financialdatasets.ai"),
		MarketDataAPIKey:  getEnv("MARKETDATA_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/trades.db"),

		CycleIntervalS: getEnvInt("CYCLE_INTERVAL_S", 5),
		AlertWebhook:   getEnv("ALERT_WEBHOOK_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
