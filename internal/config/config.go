package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" default:"5"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
}

// Config holds the relay settings.
type Config struct {
	Port            string        `env:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" default:"4096"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" default:"5s"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE" default:"256"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" default:"text"`
	RateLimit       RateLimitConfig
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  4096,
		SendTimeout:     5 * time.Second,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
	}
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg = Sanitize(cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize replaces missing or non-positive values with their defaults and
// trims the origin list.
func Sanitize(cfg Config) Config {
	def := Default()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}

func validate(cfg *Config) error {
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
	}

	if len(cfg.AllowedOrigins) == 0 {
		return errors.New("ALLOWED_ORIGINS must list at least one origin or *")
	}
	return nil
}
