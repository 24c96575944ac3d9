// Package morestickers provides default logging implementations.
package morestickers

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel mirrors slog levels so callers need not import log/slog.
type LogLevel int

// Log level constants, mirroring slog levels for internal mapping.
const (
	LogLevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LogLevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LogLevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LogLevelError LogLevel = LogLevel(slog.LevelError)
)

// ParseLogLevel maps "debug", "info", "warn" and "error" to a LogLevel.
// Unknown names fall back to LogLevelInfo.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the logging operations used across the module.
// The args are alternating key-value pairs, as in slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level LogLevel)
}

type defaultSlogLogger struct {
	slogger  *slog.Logger
	levelVar *slog.LevelVar
}

// NewDefaultLogger returns a JSON slog logger writing to os.Stderr at info level.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr)
}

// NewLogger returns a JSON slog logger writing to w at info level.
// The level can be changed later with SetLevel.
func NewLogger(w io.Writer) Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	handlerOpts := &slog.HandlerOptions{
		Level: levelVar,
	}
	return &defaultSlogLogger{
		slogger:  slog.New(slog.NewJSONHandler(w, handlerOpts)),
		levelVar: levelVar,
	}
}

// Debug logs a debug-level message.
func (l *defaultSlogLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs an info-level message.
func (l *defaultSlogLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs a warning-level message.
func (l *defaultSlogLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs an error-level message.
func (l *defaultSlogLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// SetLevel changes the logging level dynamically.
func (l *defaultSlogLogger) SetLevel(level LogLevel) {
	if l.levelVar != nil {
		l.levelVar.Set(slog.Level(level))
	}
}
