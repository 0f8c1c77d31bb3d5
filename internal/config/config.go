// Package config provides configuration management for the blueprint review
// service. Settings are loaded from environment variables with the BLUEPRINT_
// prefix, with sensible defaults for everything that is not a credential.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the application.
type Config struct {
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Security SecurityConfig
	Log      LogConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 8090)
	Host string // Server host (default: 127.0.0.1)
}

// OCRConfig contains the document recognition service configuration.
type OCRConfig struct {
	AppID      string        // TextIn x-ti-app-id header value
	SecretCode string        // TextIn x-ti-secret-code header value
	BaseURL    string        // API base URL (default: https://api.textin.com)
	Timeout    time.Duration // Per-call timeout (default: 5m)
}

// LLMConfig contains the streaming generation service configuration.
type LLMConfig struct {
	APIKey      string        // Bearer token for the chat completions API
	BaseURL     string        // OpenAI-compatible base URL (default: https://api.openai.com)
	Model       string        // Model name (default: gpt-4o-mini)
	Timeout     time.Duration // Per-call timeout (default: 10m)
	Temperature float64       // Sampling temperature (default: 0.7)
}

// StorageConfig contains record-store configuration.
type StorageConfig struct {
	Engine      string // Storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // Path to the data directory for sqlite (default: ./data)
	PostgresDSN string // Connection string when Engine is postgres
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // Bearer token required in production mode
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string // Log level (default: info)
	Format string // json or console (default: console)
}

// LoadConfig loads configuration from environment variables with defaults.
// All environment variables use the BLUEPRINT_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("BLUEPRINT_PORT", 8090),
			Host: getEnv("BLUEPRINT_HOST", "127.0.0.1"),
		},
		OCR: OCRConfig{
			AppID:      getEnv("BLUEPRINT_TEXTIN_APP_ID", ""),
			SecretCode: getEnv("BLUEPRINT_TEXTIN_SECRET_CODE", ""),
			BaseURL:    getEnv("BLUEPRINT_TEXTIN_BASE_URL", "https://api.textin.com"),
			Timeout:    getEnvDuration("BLUEPRINT_OCR_TIMEOUT", 5*time.Minute),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("BLUEPRINT_LLM_API_KEY", ""),
			BaseURL:     getEnv("BLUEPRINT_LLM_BASE_URL", "https://api.openai.com"),
			Model:       getEnv("BLUEPRINT_LLM_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvDuration("BLUEPRINT_LLM_TIMEOUT", 10*time.Minute),
			Temperature: getEnvFloat("BLUEPRINT_LLM_TEMPERATURE", 0.7),
		},
		Storage: StorageConfig{
			Engine:      getEnv("BLUEPRINT_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("BLUEPRINT_DATA_PATH", "./data"),
			PostgresDSN: getEnv("BLUEPRINT_POSTGRES_DSN", ""),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("BLUEPRINT_SECURITY_MODE", "development"),
			APIToken:     getEnv("BLUEPRINT_API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("BLUEPRINT_LOG_LEVEL", "info"),
			Format: getEnv("BLUEPRINT_LOG_FORMAT", "console"),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("300s", "5m")
// or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
