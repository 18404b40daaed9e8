// Package config reads genchat settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability/slogobs"
)

const (
	EnvAPIKey            = "GEMINI_API_KEY"
	EnvBaseURL           = "GEMINI_API_BASE_URL"
	EnvModel             = "GEMINI_MODEL"
	EnvDatabaseURL       = "GENCHAT_DATABASE_URL"
	EnvRequestTimeout    = "GENCHAT_REQUEST_TIMEOUT"
	EnvMaxRetries        = "GENCHAT_MAX_RETRIES"
	EnvLogLevel          = "GENCHAT_LOG_LEVEL"
	EnvLogFormat         = "GENCHAT_LOG_FORMAT"
	EnvSessionID         = "GENCHAT_SESSION_ID"
	EnvSystemInstruction = "GENCHAT_SYSTEM_INSTRUCTION"
	EnvTemperature       = "GENCHAT_TEMPERATURE"
	EnvMaxOutputTokens   = "GENCHAT_MAX_OUTPUT_TOKENS"

	DefaultRequestTimeout = 2 * time.Minute
	DefaultMaxRetries     = 3
)

// Config holds every setting the genchat command consumes. Empty strings
// mean "use the component default".
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	DatabaseURL       string
	SessionID         string
	SystemInstruction string
	Temperature       *float64
	MaxOutputTokens   *int
	RequestTimeout    time.Duration
	MaxRetries        int
	LogLevel          slog.Level
	LogFormat         slogobs.Format
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then calls
// [FromEnv]. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	cfg := Config{
		APIKey:            os.Getenv(EnvAPIKey),
		BaseURL:           os.Getenv(EnvBaseURL),
		Model:             os.Getenv(EnvModel),
		DatabaseURL:       os.Getenv(EnvDatabaseURL),
		SessionID:         os.Getenv(EnvSessionID),
		SystemInstruction: os.Getenv(EnvSystemInstruction),
		RequestTimeout:    DefaultRequestTimeout,
		MaxRetries:        DefaultMaxRetries,
		LogLevel:          slog.LevelInfo,
		LogFormat:         slogobs.ParseFormat(os.Getenv(EnvLogFormat)),
	}

	var errs []error
	if v := strings.TrimSpace(os.Getenv(EnvRequestTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvRequestTimeout, err))
		case d < 0:
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %s", EnvRequestTimeout, d))
		default:
			cfg.RequestTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxRetries)); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxRetries, err))
		case n < 0:
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %d", EnvMaxRetries, n))
		default:
			cfg.MaxRetries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemperature)); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvTemperature, err))
		case t < 0 || t > 2:
			errs = append(errs, fmt.Errorf("%s: must be within [0, 2], got %g", EnvTemperature, t))
		default:
			cfg.Temperature = utils.Ptr(t)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxOutputTokens)); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxOutputTokens, err))
		case n <= 0:
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", EnvMaxOutputTokens, n))
		default:
			cfg.MaxOutputTokens = utils.Ptr(n)
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		level, ok := slogobs.ParseLevel(v)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown level %q", EnvLogLevel, v))
		}
		cfg.LogLevel = level
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// GenerationConfig returns the sampling settings, or nil when none is set.
func (c Config) GenerationConfig() *ai.GenerationConfig {
	if c.Temperature == nil && c.MaxOutputTokens == nil {
		return nil
	}
	return &ai.GenerationConfig{Temperature: c.Temperature, MaxOutputTokens: c.MaxOutputTokens}
}

// Persistent reports whether history should be kept in PostgreSQL.
func (c Config) Persistent() bool {
	return c.DatabaseURL != ""
}
