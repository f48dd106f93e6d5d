package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:5174" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	RedisURL       string   `env:"REDIS_URL"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"production"`

	// ChatWindow is the number of messages pushed to live chat views
	ChatWindow  int      `env:"CHAT_WINDOW" envDefault:"50"`
	MaxTeamSize int      `env:"MAX_TEAM_SIZE" envDefault:"20"`
	AdminIDs    []string `env:"ADMIN_IDS" envSeparator:","`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = trimList(cfg.AllowedOrigins)
	cfg.AdminIDs = trimList(cfg.AdminIDs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.ChatWindow < 0 {
		return fmt.Errorf("CHAT_WINDOW must not be negative, got %d", c.ChatWindow)
	}
	if c.MaxTeamSize < 2 {
		return fmt.Errorf("MAX_TEAM_SIZE must be at least 2, got %d", c.MaxTeamSize)
	}
	return nil
}

// IsDevelopment reports whether the service runs locally
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// trimList drops blank entries from a comma-separated list
func trimList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
