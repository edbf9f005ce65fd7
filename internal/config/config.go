// Package config loads runtime configuration from the environment, with
// optional .env / .env.local files layered in for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Vision   VisionConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	URL      string // full DSN, overrides the individual fields when set
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// VisionConfig tunes the vision-model fallback pass.
type VisionConfig struct {
	Temperature     float32
	MaxTokens       int
	ConfidenceScore float64
	CostPerCall     float64
}

// Load reads configuration from the environment. .env.local wins over
// .env; both are optional and real environment variables win over either.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "oasara"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			URL:      getEnv("DATABASE_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Vision: VisionConfig{
			Temperature:     0.1,
			MaxTokens:       4096,
			ConfidenceScore: 0.85,
			CostPerCall:     0.02,
		},
	}

	if cfg.Database.URL == "" && cfg.Database.Password == "" {
		return nil, errors.New("config: database credentials not set (DATABASE_URL or DB_PASSWORD)")
	}
	return cfg, nil
}

// RequireOpenAI verifies the OpenAI key is present. Only the vision pass
// needs it, so the check is separate from Load.
func (c *Config) RequireOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("config: OPENAI_API_KEY not set")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DatabaseDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
