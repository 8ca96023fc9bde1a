package log

import (
	"context"
	"log/slog"
	"sync"

	"brickyard/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &Logger{
		slog:   slog.New(handler),
		config: config,
	}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithError adds error details to the logger.
// If the error is a PipelineError, it adds error_code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	if pe, ok := err.(*errors.PipelineError); ok {
		args := []any{
			"error", pe.Message,
			"error_code", string(pe.Code),
		}
		if len(pe.Suggestions) > 0 {
			args = append(args, "suggestions", pe.Suggestions)
		}
		if pe.Cause != nil {
			args = append(args, "cause", pe.Cause.Error())
		}
		return l.With(args...)
	}

	return l.With("error", err.Error())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// DebugContext logs a debug message with context
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// InfoContext logs an info message with context
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.ToSlogLevel())
}

var (
	defaultLogger *Logger
	loggerMu      sync.RWMutex
)

// SetDefaultLogger sets the process-wide default logger.
func SetDefaultLogger(logger *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// DefaultLogger returns the process-wide default logger.
// If none was configured, it falls back to a basic logger.
func DefaultLogger() *Logger {
	loggerMu.RLock()
	if defaultLogger != nil {
		defer loggerMu.RUnlock()
		return defaultLogger
	}
	loggerMu.RUnlock()

	// Initialize lazily with standard defaults.
	logger := Default()
	SetDefaultLogger(logger)
	return logger
}
