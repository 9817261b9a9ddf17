package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Weather  WeatherConfig
	Analysis AnalysisConfig
	Email    EmailConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Environment  string
}

// DatabaseConfig represents the primary store configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig represents the secondary cache configuration
type RedisConfig struct {
	URL         string
	SnapshotTTL time.Duration
}

// WeatherConfig represents the weather collaborator configuration
type WeatherConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AnalysisConfig represents the AI analysis collaborator configuration
type AnalysisConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	MockMode bool
}

// EmailConfig represents the SMTP notification configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SecurityConfig represents actor-token configuration
type SecurityConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
			SnapshotTTL: getEnvDuration("REDIS_SNAPSHOT_TTL", 24*time.Hour),
		},
		Weather: WeatherConfig{
			BaseURL: getEnv("WEATHER_BASE_URL", "https://api.weatherapi.com"),
			APIKey:  os.Getenv("WEATHER_API_KEY"),
			Timeout: getEnvDuration("WEATHER_TIMEOUT", 5*time.Second),
		},
		Analysis: AnalysisConfig{
			BaseURL:  getEnv("ANALYSIS_BASE_URL", ""),
			APIKey:   os.Getenv("ANALYSIS_API_KEY"),
			Timeout:  getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second),
			MockMode: getEnvBool("ANALYSIS_MOCK_MODE", true),
		},
		Email: EmailConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@siteledger.local"),
		},
		Security: SecurityConfig{
			TokenSecret: getEnv("TOKEN_SECRET", "dev-secret-change-in-production"),
			TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.Analysis.MockMode && c.Analysis.BaseURL == "" {
		return fmt.Errorf("ANALYSIS_BASE_URL is required when mock mode is off")
	}
	if c.IsProduction() && c.Security.TokenSecret == "dev-secret-change-in-production" {
		return fmt.Errorf("TOKEN_SECRET must be set in production")
	}
	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
