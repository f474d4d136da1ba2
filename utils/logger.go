package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging throughout the application.
// It keeps a printf-style API on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger writing human-readable lines to stderr at info level.
func NewLogger() *Logger {
	return NewLoggerWithLevel("info")
}

// NewLoggerWithLevel creates a console Logger filtered at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLoggerWithLevel(level string) *Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

// NewNopLogger returns a Logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newLogger(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// With returns a child logger that tags every line with key=value.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
