package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.Gateway.URL)
	assert.Equal(t, 0, cfg.Gateway.LargeThreshold)
	assert.Equal(t, 30, cfg.REST.TimeoutSeconds)
	assert.Equal(t, "quill.env", cfg.Settings.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GATEWAY_URL", "ws://localhost:9000/")
	t.Setenv("GATEWAY_LARGE_THRESHOLD", "150")
	t.Setenv("REST_BASE_URL", "http://localhost:9001")
	t.Setenv("REST_TIMEOUT_SECONDS", "10")
	t.Setenv("SETTINGS_PATH", "/tmp/custom.env")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9000/", cfg.Gateway.URL)
	assert.Equal(t, 150, cfg.Gateway.LargeThreshold)
	assert.Equal(t, "http://localhost:9001", cfg.REST.BaseURL)
	assert.Equal(t, 10, cfg.REST.TimeoutSeconds)
	assert.Equal(t, "/tmp/custom.env", cfg.Settings.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric threshold", "GATEWAY_LARGE_THRESHOLD", "many"},
		{"negative threshold", "GATEWAY_LARGE_THRESHOLD", "-1"},
		{"non-numeric timeout", "REST_TIMEOUT_SECONDS", "soon"},
		{"zero timeout", "REST_TIMEOUT_SECONDS", "0"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown log format", "LOG_FORMAT", "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{
		REST:    RESTConfig{TimeoutSeconds: 30},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Gateway.LargeThreshold = -5
	assert.Error(t, cfg.Validate())
}
