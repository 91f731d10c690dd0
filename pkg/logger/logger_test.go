package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   zapcore.Level
	}{
		{"debug console", "debug", "console", zapcore.DebugLevel},
		{"info json", "info", "json", zapcore.InfoLevel},
		{"warn console", "warn", "console", zapcore.WarnLevel},
		{"error json", "error", "json", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format)

			require.NoError(t, err)
			require.NotNil(t, log)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want != zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	log, err := New("loud", "console")

	assert.Error(t, err)
	assert.Nil(t, log)
}

func TestNewDevelopment(t *testing.T) {
	log, err := NewDevelopment()

	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
