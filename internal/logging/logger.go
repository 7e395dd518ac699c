// Package logging builds the structured loggers used by the simulator.
// It wraps Go's log/slog package; the protocols receive the resulting
// *slog.Logger directly.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Output formats supported by the logger
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New creates a logger writing to w in the given format.
// A nil w writes to stderr. Unknown levels default to INFO and unknown
// formats to JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	if strings.EqualFold(format, FormatText) {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevels returns the accepted level names in lower case.
func ValidLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidFormats returns the accepted output formats.
func ValidFormats() []string {
	return []string{FormatJSON, FormatText}
}
