// Package logger configures structured logging for the attendance services.
// It standardizes on log/slog with JSON output in production and adds field
// helpers for the identifiers that appear in almost every log line.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
	// FormatText emits human-readable key=value lines, for local runs.
	FormatText Format = "text"
)

// Options configures the logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer

	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Format selects JSON or text encoding.
	Format Format

	// AddSource includes file:line of the log call site.
	AddSource bool
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  "info",
		Format: FormatJSON,
	}
}

// ParseLevel maps a level string to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a configured *slog.Logger.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == FormatText {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}

// Default creates a logger with production defaults.
func Default() *slog.Logger {
	return New(DefaultOptions())
}

// Field helpers for the identifiers threaded through attendance logs.

func StudentID(id string) Field  { return slog.String("student_id", id) }
func Stream(code string) Field   { return slog.String("stream", code) }
func Period(n int) Field         { return slog.Int("period", n) }
func Day(d string) Field         { return slog.String("day", d) }
func Subject(name string) Field  { return slog.String("subject", name) }
func BatchID(id string) Field    { return slog.String("batch_id", id) }
func Partition(id string) Field  { return slog.String("partition", id) }
func Component(name string) Field { return slog.String("component", name) }
func Operation(name string) Field { return slog.String("operation", name) }

// Err renders an error under the conventional "error" key.
func Err(err error) Field {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}

// Latency records an operation duration.
func Latency(d time.Duration) Field { return slog.Duration("latency", d) }

// Field aliases slog.Attr so call sites read logger.StudentID(...) without
// importing slog for the type.
type Field = slog.Attr
