// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	FrontendURL         string
	DBPath              string
	OnboardingCourse    string
	LeaderboardLimit    int
	MaintenanceInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	leaderboardLimit := getEnvInt("LEADERBOARD_LIMIT", 20)
	if leaderboardLimit <= 0 {
		leaderboardLimit = 20
	}

	maintenanceMinutes := getEnvInt("MAINTENANCE_INTERVAL_MINUTES", 5)
	if maintenanceMinutes <= 0 {
		maintenanceMinutes = 5
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		DBPath:              getEnv("DB_PATH", "./data/trellis.db"),
		OnboardingCourse:    getEnv("ONBOARDING_COURSE", "html"),
		LeaderboardLimit:    leaderboardLimit,
		MaintenanceInterval: time.Duration(maintenanceMinutes) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OnboardingCourse == "" {
		return fmt.Errorf("ONBOARDING_COURSE cannot be empty")
	}
	if c.LeaderboardLimit <= 0 {
		return fmt.Errorf("LEADERBOARD_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
