// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured, leveled logger used by every
// linkguard component. Call sites pass alternating key/value pairs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is a logging severity.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config controls logger construction.
type Config struct {
	Level  Level
	Output io.Writer
	JSON   bool
	Syslog SyslogConfig
}

// DefaultConfig returns an info-level text logger on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger wraps slog.Logger with component scoping.
type Logger struct {
	*slog.Logger
}

// New creates a logger from cfg. If syslog forwarding is enabled but the
// collector cannot be reached, the logger falls back to local output only
// and reports the failure on it.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var syslogErr error
	if cfg.Syslog.Enabled {
		w, err := NewSyslogWriter(cfg.Syslog)
		if err != nil {
			syslogErr = err
		} else {
			out = io.MultiWriter(out, w)
		}
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	l := &Logger{Logger: slog.New(h)}
	if syslogErr != nil {
		l.Warn("syslog forwarding disabled", "error", syslogErr)
	}
	return l
}

// With returns a logger that includes the given attributes on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithComponent returns a logger tagged with component=name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(DefaultConfig())
)

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// WithComponent returns the default logger tagged with component=name.
func WithComponent(name string) *Logger {
	return Default().WithComponent(name)
}

// Info logs on the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs on the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs on the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Debug logs on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// ParseLevel maps a config string to a Level. Unknown values yield info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
