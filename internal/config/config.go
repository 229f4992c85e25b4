// Package config loads runtime settings for the typewriter server from the
// environment.
//
// An optional .env file is read first; variables already set in the process
// environment win over it. Command line flags override both (see cli).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "TYPEWRITER_"

// Config holds server settings.
type Config struct {
	// HTTPAddr is the listen address for the WebSocket transport.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"localhost:8080"`

	// EntriesDir is the directory scanned for entry files.
	EntriesDir string `env:"ENTRIES_DIR" envDefault:"entries"`

	// DBPath is the SQLite database for facts and activations.
	DBPath string `env:"DB_PATH" envDefault:"typewriter.db"`

	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"50ms"`
	HistorySize  int           `env:"HISTORY_SIZE" envDefault:"64"`
	MaxSteps     int           `env:"MAX_STEPS" envDefault:"1000"`

	// ActionTimeout bounds one action or dialogue effect.
	ActionTimeout time.Duration `env:"ACTION_TIMEOUT" envDefault:"5s"`

	// OTelEndpoint enables trace export when set, e.g. http://localhost:4318.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads dotenvPath (if it exists) and then parses the environment.
// Pass an empty path to skip the dotenv step.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("%sTICK_INTERVAL must be positive, got %s", Prefix, c.TickInterval))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("%sHISTORY_SIZE must be positive, got %d", Prefix, c.HistorySize))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("%sMAX_STEPS must be positive, got %d", Prefix, c.MaxSteps))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sACTION_TIMEOUT must be positive, got %s", Prefix, c.ActionTimeout))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured slog level, defaulting to Info.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel accepts debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err)
	}
	return lvl, nil
}
