package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string
	AppEnv       string
	PagesDir     string

	// Anthropic API settings
	AnthropicAPIKey    string
	DefaultModel       string
	AnthropicTimeoutMs int
}

// IsDevelopment reports whether the server runs in development mode.
// Development mode includes stack traces in error responses.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	cfg := Config{
		Host:               envString("HOST", "0.0.0.0"),
		Port:               envString("PORT", "5050"),
		SQLiteDBPath:       envString("SQLITE_DB_PATH", "./data/taskpilot.db"),
		AppEnv:             envString("APP_ENV", "development"),
		PagesDir:           envString("PAGES_DIR", "./pages"),
		AnthropicAPIKey:    envString("ANTHROPIC_API_KEY", ""),
		DefaultModel:       envString("DEFAULT_MODEL", ""),
		AnthropicTimeoutMs: envInt("ANTHROPIC_TIMEOUT_MS", 60000),
	}

	if cfg.AnthropicAPIKey == "" {
		log.Printf("WARNING: ANTHROPIC_API_KEY is not set; AI endpoints will fail upstream")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
