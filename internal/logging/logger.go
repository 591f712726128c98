// Package logging provides the structured logger used by the kernel and its
// collaborators. It wraps log/slog behind a small interface so components can
// be handed a no-op logger in tests.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError

	levelOff
)

var slogLevels = [...]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// ParseLevel converts a textual level such as "debug" into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// KernelLogger implements Logger on top of a slog handler.
type KernelLogger struct {
	handler   slog.Handler
	level     LogLevel
	component string
	attrs     []slog.Attr
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	Component string
}

// NewLogger creates a logger writing to config.Output, stderr by default.
func NewLogger(config *LoggerConfig) *KernelLogger {
	cfg := LoggerConfig{Level: LevelInfo}
	if config != nil {
		cfg = *config
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	// Filtering happens in KernelLogger so the handler accepts everything.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var handler slog.Handler = slog.NewTextHandler(cfg.Output, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	return &KernelLogger{
		handler:   handler,
		level:     cfg.Level,
		component: cfg.Component,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *KernelLogger {
	return NewLogger(&LoggerConfig{Level: levelOff, Output: io.Discard})
}

// Debug logs a debug message
func (l *KernelLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelDebug, nil, msg, fields)
}

// Info logs an info message
func (l *KernelLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelInfo, nil, msg, fields)
}

// Warn logs a warning message
func (l *KernelLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelWarn, err, msg, fields)
}

// Error logs an error message
func (l *KernelLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelError, err, msg, fields)
}

// With returns a logger that adds fields, as key/value pairs, to every record.
func (l *KernelLogger) With(fields ...interface{}) Logger {
	child := *l
	child.attrs = appendPairs(append([]slog.Attr(nil), l.attrs...), fields)
	return &child
}

// WithComponent returns a logger tagging records with component.
func (l *KernelLogger) WithComponent(component string) Logger {
	child := *l
	child.component = component
	return &child
}

func (l *KernelLogger) log(ctx context.Context, level LogLevel, err error, msg string, fields []interface{}) {
	if level < l.level {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)/2+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, l.attrs...)
	attrs = appendPairs(attrs, fields)

	record := slog.NewRecord(time.Now(), slogLevels[level], msg, 0)
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)
}

// appendPairs converts alternating key/value fields into attributes. Pairs
// whose key is not a string are dropped.
func appendPairs(attrs []slog.Attr, fields []interface{}) []slog.Attr {
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}
	return attrs
}

// Operation times one unit of work and logs its outcome.
type Operation struct {
	logger Logger
	start  time.Time
}

// StartOperation begins timing the named operation.
func StartOperation(l Logger, name string) *Operation {
	return &Operation{
		logger: l.With("operation", name),
		start:  time.Now(),
	}
}

// End logs completion at debug level and returns the elapsed time.
func (o *Operation) End(ctx context.Context) time.Duration {
	d := time.Since(o.start)
	o.logger.Debug(ctx, "Operation completed", "duration_ms", d.Milliseconds())
	return d
}

// EndWithError logs err and returns the elapsed time.
func (o *Operation) EndWithError(ctx context.Context, err error) time.Duration {
	d := time.Since(o.start)
	o.logger.Error(ctx, err, "Operation failed", "duration_ms", d.Milliseconds())
	return d
}
