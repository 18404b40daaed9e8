package slogobs

import (
	"os"
	"strings"
)

// Format selects how records are rendered.
type Format string

const (
	// FormatCompact renders `2006-01-02 15:04:05  INFO message → {"k":"v"}`.
	FormatCompact Format = "compact"

	// FormatJSON renders one slog JSON object per line.
	FormatJSON Format = "json"
)

// ParseFormat maps s to a Format, defaulting to FormatCompact.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// FormatFromEnv reads GENCHAT_LOG_FORMAT, then LOG_FORMAT.
func FormatFromEnv() Format {
	return ParseFormat(firstEnv("GENCHAT_LOG_FORMAT", "LOG_FORMAT"))
}

func (f Format) String() string {
	return string(f)
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
