// Package config provides configuration for the study backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	Environment string

	// Storage. An empty DatabaseURL means no primary store is
	// configured and the backend runs fallback-only; that is fatal at
	// startup in production.
	DatabaseURL string
	DataDir     string

	// Conversation limits
	MaxSessionDuration time.Duration

	// Reply-generation provider
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	// LLMTimeout bounds each completion call. Kept below the typical
	// 30s platform request ceiling so an expired call can still return
	// a fallback reply in time.
	LLMTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		Environment:        getEnv("APP_ENV", "development"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DataDir:            getEnv("DATA_DIR", "./data"),
		MaxSessionDuration: time.Duration(getEnvInt("MAX_SESSION_MINUTES", 20)) * time.Minute,
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o"),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 25000)) * time.Millisecond,
	}
	return cfg
}

// Production reports whether the backend runs in the designated
// production execution mode, where a missing primary store aborts
// startup instead of degrading to fallback-only.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
