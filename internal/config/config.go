// Package config provides application configuration management using
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client.
type Config struct {
	Gateway  GatewayConfig
	REST     RESTConfig
	Settings SettingsConfig
	Logging  LoggingConfig
}

// GatewayConfig holds gateway connection configuration.
type GatewayConfig struct {
	URL            string
	LargeThreshold int
}

// RESTConfig holds REST API configuration.
type RESTConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SettingsConfig holds settings persistence configuration.
type SettingsConfig struct {
	Path string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
// It optionally loads from a .env file if it exists.
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	largeThreshold, err := strconv.Atoi(getEnv("GATEWAY_LARGE_THRESHOLD", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_LARGE_THRESHOLD: %w", err)
	}

	cfg.Gateway = GatewayConfig{
		URL:            getEnv("GATEWAY_URL", ""),
		LargeThreshold: largeThreshold,
	}

	timeoutSeconds, err := strconv.Atoi(getEnv("REST_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REST_TIMEOUT_SECONDS: %w", err)
	}

	cfg.REST = RESTConfig{
		BaseURL:        getEnv("REST_BASE_URL", ""),
		TimeoutSeconds: timeoutSeconds,
	}

	cfg.Settings = SettingsConfig{
		Path: getEnv("SETTINGS_PATH", "quill.env"),
	}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Gateway.LargeThreshold < 0 {
		return fmt.Errorf("GATEWAY_LARGE_THRESHOLD must not be negative")
	}
	if c.REST.TimeoutSeconds <= 0 {
		return fmt.Errorf("REST_TIMEOUT_SECONDS must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
