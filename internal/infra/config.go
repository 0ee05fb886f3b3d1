package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	GenerationAPIURL string
	GenerationToken  string
	AssetBaseURL     string
	LedgerPath       string
	CORSOrigins      []string

	// Polling cadence tiers, see orchestrator.
	PollTier1         time.Duration
	PollTier2         time.Duration
	PollTier3         time.Duration
	PollTier3After    time.Duration
	BackoffBase       time.Duration
	MaxRateLimitRetry int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		GenerationAPIURL:  os.Getenv("GENERATION_API_URL"),
		GenerationToken:   os.Getenv("GENERATION_API_TOKEN"),
		AssetBaseURL:      os.Getenv("ASSET_BASE_URL"),
		LedgerPath:        os.Getenv("LEDGER_PATH"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		PollTier1:         time.Second * time.Duration(getEnvInt("POLL_TIER1_SECONDS", 10)),
		PollTier2:         time.Second * time.Duration(getEnvInt("POLL_TIER2_SECONDS", 15)),
		PollTier3:         time.Second * time.Duration(getEnvInt("POLL_TIER3_SECONDS", 20)),
		PollTier3After:    time.Second * time.Duration(getEnvInt("POLL_TIER3_AFTER_SECONDS", 120)),
		BackoffBase:       time.Second * time.Duration(getEnvInt("RATE_LIMIT_BACKOFF_SECONDS", 5)),
		MaxRateLimitRetry: getEnvInt("RATE_LIMIT_MAX_RETRIES", 3),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.GenerationAPIURL == "" {
		return nil, fmt.Errorf("GENERATION_API_URL is required")
	}
	cfg.GenerationAPIURL = strings.TrimRight(cfg.GenerationAPIURL, "/")

	if cfg.AssetBaseURL == "" {
		cfg.AssetBaseURL = cfg.GenerationAPIURL
	}
	cfg.AssetBaseURL = strings.TrimRight(cfg.AssetBaseURL, "/")

	if cfg.MaxRateLimitRetry < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
