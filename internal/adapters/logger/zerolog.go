// Package logger implements the ports.Logger interface on top of
// zerolog, with optional rotating file output.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"riskbot/internal/ports"
)

// Config holds logging configuration.
type Config struct {
	Level      string
	Console    bool
	FilePath   string // Empty disables file output
	MaxSize    int    // megabytes, defaults to 100
	MaxBackups int    // defaults to 7
	MaxAge     int    // days, defaults to 30
}

// ZerologLogger adapts a zerolog.Logger to the ports.Logger contract.
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ ports.Logger = (*ZerologLogger)(nil)

// New creates a structured logger writing to the console and, when a
// file path is configured, to a size-rotated log file.
func New(cfg Config) *ZerologLogger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.FilePath != "" {
		// Ensure log directory exists; fall back to console-only on failure.
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    defaultInt(cfg.MaxSize, 100),
				MaxBackups: defaultInt(cfg.MaxBackups, 7),
				MaxAge:     defaultInt(cfg.MaxAge, 30),
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stderr
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &ZerologLogger{logger: zl}
}

// ParseLevel converts a string level to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug", "DEBUG":
		return zerolog.DebugLevel
	case "info", "INFO":
		return zerolog.InfoLevel
	case "warn", "warning", "WARN", "WARNING":
		return zerolog.WarnLevel
	case "error", "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a message at Debug level.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Debug(), msg, fields)
}

// Info logs a message at Info level.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Info(), msg, fields)
}

// Warn logs a message at Warning level.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Warn(), msg, fields)
}

// Error logs an error message at Error level.
func (l *ZerologLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Error().Err(err), msg, fields)
}

func (l *ZerologLogger) emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	if len(fields) > 0 && fields[0] != nil {
		event = event.Fields(fields[0])
	}
	event.Msg(msg)
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
