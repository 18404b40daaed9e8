package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option configures an Observer.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors *bool
	logger *slog.Logger
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the destination writer.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors forces level colors on or off for the compact format.
// Without it, colors follow whether the output is a terminal.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = &enabled
	}
}

// WithLogger routes everything through an existing logger and ignores the
// format, level, output and color options.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func applyOptions(opts ...Option) *config {
	cfg := &config{
		format: FormatFromEnv(),
		level:  LevelFromEnv(),
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) buildLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	if c.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(c.output, &slog.HandlerOptions{
			Level: c.level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey {
					if level, ok := a.Value.Any().(slog.Level); ok {
						a.Value = slog.StringValue(LevelString(level))
					}
				}
				return a
			},
		}))
	}
	colors := isTerminal(c.output)
	if c.colors != nil {
		colors = *c.colors
	}
	return slog.New(NewCompactHandler(c.output, c.level, colors))
}
