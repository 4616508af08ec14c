package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Redis configuration (odds snapshot cache)
	RedisAddr    string
	OddsCacheTTL time.Duration

	// Discord announcements (optional; disabled when token is empty)
	DiscordToken     string
	DiscordChannelID string

	// Odds configuration
	HouseMarginBps int // house margin in basis points, e.g. 500 = 5%

	// Rating configuration
	EloKFactor    int
	StartingCoins int64

	// Pending-credit retry worker
	CreditRetryInterval time.Duration
	CreditMaxAttempts   int

	// Metrics/health HTTP server
	MetricsPort string

	// Environment: "development", "production" or "test"
	Environment string
}

var (
	mu       sync.Mutex
	instance *Config
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		cfg, err := load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		instance = cfg
	}
	return instance
}

// SetTestConfig overrides the global configuration for tests
func SetTestConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// NewTestConfig returns a configuration suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HouseMarginBps:      500,
		EloKFactor:          32,
		StartingCoins:       1000,
		OddsCacheTTL:        time.Minute,
		CreditRetryInterval: time.Second,
		CreditMaxAttempts:   5,
		Environment:         "test",
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Defaults
		HouseMarginBps:      500, // 5% house margin
		EloKFactor:          32,
		StartingCoins:       1000,
		OddsCacheTTL:        5 * time.Minute,
		CreditRetryInterval: 30 * time.Second,
		CreditMaxAttempts:   10,
		MetricsPort:         "9090",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if margin := os.Getenv("HOUSE_MARGIN_BPS"); margin != "" {
		if parsed, err := strconv.Atoi(margin); err == nil {
			config.HouseMarginBps = parsed
		}
	}
	if k := os.Getenv("ELO_K_FACTOR"); k != "" {
		if parsed, err := strconv.Atoi(k); err == nil {
			config.EloKFactor = parsed
		}
	}
	if coins := os.Getenv("STARTING_COINS"); coins != "" {
		if parsed, err := strconv.ParseInt(coins, 10, 64); err == nil {
			config.StartingCoins = parsed
		}
	}
	if ttl := os.Getenv("ODDS_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.OddsCacheTTL = parsed
		}
	}
	if interval := os.Getenv("CREDIT_RETRY_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.CreditRetryInterval = parsed
		}
	}
	if port := os.Getenv("METRICS_PORT"); port != "" {
		config.MetricsPort = port
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
