// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Advisory oracle (OpenAI-compatible chat completions endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Trading parameters
	InitialFunds float64 // Starting cash balance, also the nominal max funds
	MinBuffer    float64 // Cash floor a buy may never breach
	MaxTrades    int     // Per-cycle trade budget passed to the oracle prompt (advisory)

	// Feedback
	FeedbackLookbackDays int

	// Venue local timezone used for all window checks
	VenueTimezone string

	// Intake sources as name=url pairs
	IntakeSources map[string]string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8001),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4.1"),
		InitialFunds:         getEnvAsFloat("INITIAL_FUNDS", 10000),
		MinBuffer:            getEnvAsFloat("MIN_BUFFER", 100),
		MaxTrades:            getEnvAsInt("MAX_TRADES", 5),
		FeedbackLookbackDays: getEnvAsInt("FEEDBACK_LOOKBACK_DAYS", 30),
		VenueTimezone:        getEnv("VENUE_TIMEZONE", "America/New_York"),
		IntakeSources:        parseSources(getEnv("INTAKE_SOURCES", defaultIntakeSources)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.InitialFunds <= 0 {
		return fmt.Errorf("initial funds must be positive, got %f", c.InitialFunds)
	}
	if c.MinBuffer < 0 {
		return fmt.Errorf("minimum buffer must be non-negative, got %f", c.MinBuffer)
	}
	if c.MinBuffer >= c.InitialFunds {
		return fmt.Errorf("minimum buffer %f must be below initial funds %f", c.MinBuffer, c.InitialFunds)
	}
	if c.MaxTrades <= 0 {
		return fmt.Errorf("max trades must be positive, got %d", c.MaxTrades)
	}
	if c.FeedbackLookbackDays <= 0 {
		return fmt.Errorf("feedback lookback days must be positive, got %d", c.FeedbackLookbackDays)
	}
	return nil
}

// defaultIntakeSources lists the news pages polled when INTAKE_SOURCES is unset.
const defaultIntakeSources = "cnbc=https://www.cnbc.com," +
	"cnn_money=https://money.cnn.com," +
	"seeking_alpha=https://seekingalpha.com," +
	"fox_business=https://www.foxbusiness.com," +
	"yahoo_finance=https://finance.yahoo.com"

// parseSources parses comma-separated name=url pairs. Malformed entries are
// dropped silently.
func parseSources(raw string) map[string]string {
	sources := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || url == "" {
			continue
		}
		sources[name] = url
	}
	return sources
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
