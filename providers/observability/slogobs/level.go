package slogobs

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel parses TRACE, DEBUG, INFO, WARN/WARNING or ERROR
// (case-insensitive). The second result is false for anything else, in which
// case the level is INFO.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LevelFromEnv reads GENCHAT_LOG_LEVEL, then LOG_LEVEL. Unset or unknown
// values yield INFO.
func LevelFromEnv() slog.Level {
	level, _ := ParseLevel(firstEnv("GENCHAT_LOG_LEVEL", "LOG_LEVEL"))
	return level
}

// LevelString renders a level the way the compact handler prints it.
func LevelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	case level == slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("ERROR+%d", level-slog.LevelError)
	}
}
