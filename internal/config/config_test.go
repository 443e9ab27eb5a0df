package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, http://localhost:3000")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("SEND_TIMEOUT", "250ms")
	t.Setenv("SEND_BUFFER_SIZE", "32")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.SendTimeout)
	assert.Equal(t, 32, cfg.SendBufferSize)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, RateLimitConfig{Burst: 20, RefillInterval: 2 * time.Second}, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "unparsable size", key: "MAX_MESSAGE_SIZE", value: "big"},
		{name: "unparsable duration", key: "SEND_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := Sanitize(Config{
		Port:           "7000",
		AllowedOrigins: []string{" * ", "", "  "},
		MaxMessageSize: -1,
		SendTimeout:    -time.Second,
		RateLimit:      RateLimitConfig{Burst: 0, RefillInterval: 0},
	})

	def := Default()
	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.SendTimeout, cfg.SendTimeout)
	assert.Equal(t, def.SendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestSanitize_KeepsHostPort(t *testing.T) {
	cfg := Sanitize(Config{Port: "127.0.0.1:8081"})

	assert.Equal(t, "127.0.0.1:8081", cfg.Port)
}
