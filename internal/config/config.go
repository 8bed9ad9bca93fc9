package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env           string
	GatewayURL    string
	AuthToken     string
	VoteCachePath string
	ChatPageSize  int
	PollInterval  time.Duration
	Logging       LoggingConfig
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:           getenv("APP_ENV", "dev"),
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		AuthToken:     os.Getenv("AUTH_TOKEN"),
		VoteCachePath: getenv("VOTE_CACHE_PATH", "linkup-votes.db"),
		ChatPageSize:  getenvInt("CHAT_PAGE_SIZE", 50),
		PollInterval:  getenvDuration("POLL_INTERVAL", 10*time.Second),
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if cfg.ChatPageSize <= 0 {
		return nil, fmt.Errorf("CHAT_PAGE_SIZE must be positive")
	}
	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least 1s")
	}
	if cfg.GatewayURL != "" && cfg.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_TOKEN is required when GATEWAY_URL is set")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
