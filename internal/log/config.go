package log

import (
	"io"
	"log/slog"
	"os"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug Level = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages that indicate potential issues
	LevelWarn
	// LevelError is for error messages that indicate failures
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ToSlogLevel converts our Level to slog.Level
func (l Level) ToSlogLevel() slog.Level {
	switch l {
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

// ParseLevel parses a string into a Level
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "info", "INFO":
		return LevelInfo
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents the output format for logs
type Format int

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format
	FormatText
)

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (JSON or Text)
	Format Format

	// Output is where logs should be written
	Output io.Writer

	// AddSource includes source file and line number in logs
	AddSource bool
}

// DefaultConfig returns a sensible default configuration.
// Logs at INFO level in JSON format to stderr, keeping stdout free for reports.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// DevelopmentConfig returns a configuration suitable for development.
// Logs at DEBUG level in text format with source location.
func DevelopmentConfig() Config {
	return Config{
		Level:     LevelDebug,
		Format:    FormatText,
		Output:    os.Stderr,
		AddSource: true,
	}
}
