// Package logging builds the structured loggers used by the volume and the
// command-line front end.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jmgilman/simplefs/errors"
)

// Level represents the minimum severity a logger emits.
type Level int

// Supported levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the slog handler.
type Format string

const (
	// FormatText emits logfmt-style key=value lines.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
)

// Config holds configuration for a logger.
type Config struct {
	// Level sets the minimum log level.
	Level Level
	// Format selects text or JSON output.
	Format Format
	// AddSource includes file and line number in records.
	AddSource bool
	// Writer receives the output. Defaults to os.Stderr.
	Writer io.Writer
}

// DefaultConfig returns info-level text logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Writer: os.Stderr,
	}
}

// New creates a slog logger from cfg.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level.slogLevel(),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a string log level into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf(errors.CodeInvalidConfig, "invalid log level: %s", level)
	}
}

// ParseFormat parses "text" or "json".
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, errors.Newf(errors.CodeInvalidConfig, "invalid log format: %s", format)
	}
}

// LogOperation records the outcome of one volume operation.
// Successes go to debug, failures to warn.
func LogOperation(logger *slog.Logger, operation string, duration time.Duration, err error, args ...any) {
	if logger == nil {
		return
	}

	fields := make([]any, 0, len(args)+6)
	fields = append(fields,
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"success", err == nil,
	)
	fields = append(fields, args...)

	if err != nil {
		fields = append(fields, "error", err.Error())
		logger.Warn("volume operation failed", fields...)
		return
	}
	logger.Debug("volume operation completed", fields...)
}
