package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for chat-client.
type Config struct {
	// HTTP Server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8090"`

	// Persistence backend (hosted auth/storage provider)
	BackendBaseURL string `env:"BACKEND_BASE_URL,notEmpty"`
	BackendAPIKey  string `env:"BACKEND_API_KEY"`

	// Request bounds. Every network round-trip the core issues is bounded.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CreateTimeout  time.Duration `env:"CREATE_TIMEOUT" envDefault:"10s"`
	DeleteTimeout  time.Duration `env:"DELETE_TIMEOUT" envDefault:"10s"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"15s"`

	// Conversation store
	MaxCheckpoints int    `env:"MAX_CHECKPOINTS" envDefault:"10"`
	TitleMaxLength int    `env:"TITLE_MAX_LENGTH" envDefault:"50"`
	DefaultModel   string `env:"DEFAULT_MODEL" envDefault:"jan-v1"`

	// When the backend create call fails, synthesize a locally identified
	// conversation instead of surfacing an error. Off by default: local ids
	// diverge from the backend id space until reconciled.
	LocalFallbackEnabled bool `env:"LOCAL_FALLBACK_ENABLED" envDefault:"false"`

	// Local snapshot store
	SnapshotDBPath string `env:"SNAPSHOT_DB_PATH" envDefault:"chat-client.db"`

	// Observability / Logging
	ServiceName string `env:"SERVICE_NAME" envDefault:"chat-client"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.BackendBaseURL = strings.TrimRight(strings.TrimSpace(cfg.BackendBaseURL), "/")
	if _, err := url.ParseRequestURI(cfg.BackendBaseURL); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL: %w", err)
	}

	if cfg.MaxCheckpoints < 1 {
		return nil, fmt.Errorf("MAX_CHECKPOINTS must be at least 1, got %d", cfg.MaxCheckpoints)
	}
	if cfg.TitleMaxLength < 8 {
		return nil, fmt.Errorf("TITLE_MAX_LENGTH must be at least 8, got %d", cfg.TitleMaxLength)
	}

	return cfg, nil
}
