// Package log provides the structured logger used across the trace store.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Format selects the log output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Logger wraps zerolog.Logger with key/value convenience methods.
type Logger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to stderr.
func New(format Format, level string) *Logger {
	return NewWithWriter(os.Stderr, format, level)
}

// NewWithWriter creates a Logger that writes to the specified writer.
func NewWithWriter(w io.Writer, format Format, level string) *Logger {
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	}
	return &Logger{zl: zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// With returns a new Logger with additional key/value fields.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{zl: l.zl.With().Fields(args).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.zl.Debug().Fields(args).Msg(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.zl.Info().Fields(args).Msg(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.zl.Warn().Fields(args).Msg(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, err error, args ...any) {
	l.zl.Error().Err(err).Fields(args).Msg(msg)
}
