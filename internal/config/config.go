package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL            string
	AggregatorURL          string
	AggregatorClientID     string
	AggregatorClientSecret string
	ListenAddr             string
	PollInterval           int // seconds between watcher ticks
	ItemPollInterval       int // seconds between item status polls
	ItemPollBudget         int // seconds before a poll loop times out
	SyncWindowDays         int
	StaleJobMinutes        int
	ShutdownTimeout        int // seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	aggURL := os.Getenv("AGGREGATOR_URL")
	if aggURL == "" {
		return nil, fmt.Errorf("AGGREGATOR_URL is required")
	}

	clientID := os.Getenv("AGGREGATOR_CLIENT_ID")
	clientSecret := os.Getenv("AGGREGATOR_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		fmt.Println("Warning: AGGREGATOR_CLIENT_ID or AGGREGATOR_CLIENT_SECRET not set, aggregator calls will fail")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	return &Config{
		DatabaseURL:            dbURL,
		AggregatorURL:          aggURL,
		AggregatorClientID:     clientID,
		AggregatorClientSecret: clientSecret,
		ListenAddr:             listenAddr,
		PollInterval:           intEnv("POLL_INTERVAL", 10),
		ItemPollInterval:       intEnv("ITEM_POLL_INTERVAL", 5),
		ItemPollBudget:         intEnv("ITEM_POLL_BUDGET", 480),
		SyncWindowDays:         intEnv("SYNC_WINDOW_DAYS", 90),
		StaleJobMinutes:        intEnv("STALE_JOB_MINUTES", 15),
		ShutdownTimeout:        intEnv("SHUTDOWN_TIMEOUT", 30),
	}, nil
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
