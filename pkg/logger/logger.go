package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the global logger instance. It discards everything until
// InitLogger is called.
var Logger = zerolog.Nop()

// Config holds logger configuration
type Config struct {
	Level     string    // debug, info, warn, error, disabled
	Format    string    // console, json
	Output    string    // stdout, stderr
	Writer    io.Writer // overrides Output when set
	Component string    // component name for structured logging
	NoColor   bool      // disable ANSI colors in console format
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(cfg Config) error {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	writer := cfg.Writer
	if writer == nil {
		switch cfg.Output {
		case "stderr":
			writer = os.Stderr
		default:
			writer = os.Stdout
		}
	}

	if cfg.Format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	Logger = zerolog.New(writer).With().Timestamp().Str("component", cfg.Component).Logger()
	log.Logger = Logger

	return nil
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// withFields adds fields to an event in a stable key order so console
// output reads the same on every run.
func withFields(event *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		event = event.Interface(k, fields[k])
	}
	return event
}

// Info logs an info message
func Info(pkg, message string) {
	Logger.Info().
		Str("package", pkg).
		Msg(message)
}

// Warn logs a warning message
func Warn(pkg, message string) {
	Logger.Warn().
		Str("package", pkg).
		Msg(message)
}

// SafeDebug logs a debug message with fields
func SafeDebug(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Debug().Str("package", pkg), fields).Msg(message)
}

// SafeInfo logs an info message with fields
func SafeInfo(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Info().Str("package", pkg), fields).Msg(message)
}

// SafeWarn logs a warning message with fields
func SafeWarn(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Warn().Str("package", pkg), fields).Msg(message)
}

// NTP logs a milestone of the request/reply exchange
func NTP(operation, server string, fields map[string]interface{}) {
	event := Logger.Info().
		Str("package", "ntp").
		Str("operation", operation).
		Str("server", server)

	withFields(event, fields).Msg("sntp " + operation)
}

// Security logs security-related events
func Security(event, reason string, fields map[string]interface{}) {
	logEvent := Logger.Warn().
		Str("package", "security").
		Str("event", event).
		Str("reason", reason)

	withFields(logEvent, fields).Msg("Security event detected")
}

// Startup logs application startup information
func Startup(version string, config interface{}) {
	Logger.Info().
		Str("package", "main").
		Str("version", version).
		Interface("config", config).
		Msg("sntpc starting")
}
