package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL      string
	RedisPassword string

	// JWT configuration for the HTTP API
	JWTSecret string

	// AccessPasswordHash is a bcrypt hash of the password exchanged for an
	// API token at /auth/token. Empty disables the token endpoint.
	AccessPasswordHash string

	// YNAB API configuration
	YNABToken   string
	YNABBaseURL string

	// Remote API rate limiting (YNAB allows 200 requests per hour)
	RateLimitRequests int
	RateLimitWindow   int // seconds

	Alerts AlertThresholds
}

// AlertThresholds holds detector tuning. Each value maps to a key in the
// corresponding detector's config schema.
type AlertThresholds struct {
	UnusualWarning  float64
	UnusualCritical float64

	BudgetApproaching float64

	RecurringDaysWarning      int
	RecurringDaysCritical     int
	RecurringTolerancePercent float64
	RecurringToleranceAbs     int64 // milliunits
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessPasswordHash: getEnv("ACCESS_PASSWORD_HASH", ""),
		YNABToken:          getEnv("YNAB_ACCESS_TOKEN", ""),
		YNABBaseURL:        getEnv("YNAB_BASE_URL", ""),
		RateLimitRequests:  getEnvAsInt("YNAB_RATE_LIMIT_REQUESTS", 200),
		RateLimitWindow:    getEnvAsInt("YNAB_RATE_LIMIT_WINDOW", 3600),
		Alerts: AlertThresholds{
			UnusualWarning:            getEnvAsFloat("ALERT_UNUSUAL_WARNING", 2.5),
			UnusualCritical:           getEnvAsFloat("ALERT_UNUSUAL_CRITICAL", 3.5),
			BudgetApproaching:         getEnvAsFloat("ALERT_BUDGET_APPROACHING", 0.90),
			RecurringDaysWarning:      getEnvAsInt("ALERT_RECURRING_DAYS_WARNING", 3),
			RecurringDaysCritical:     getEnvAsInt("ALERT_RECURRING_DAYS_CRITICAL", 7),
			RecurringTolerancePercent: getEnvAsFloat("ALERT_RECURRING_TOLERANCE_PERCENT", 5.0),
			RecurringToleranceAbs:     int64(getEnvAsInt("ALERT_RECURRING_TOLERANCE_ABSOLUTE", 100)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.YNABToken == "" {
		return fmt.Errorf("YNAB_ACCESS_TOKEN is required")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
