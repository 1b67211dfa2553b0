// Package logging configures zerolog for the Polymarket client and proxy.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldSurface    = "surface"
	FieldEndpoint   = "endpoint"
	FieldStatus     = "status"
	FieldErrorClass = "error_class"
	FieldOffset     = "offset"
	FieldLimit      = "limit"
	FieldPage       = "page"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel `yaml:"level"`

	// Pretty enables console output instead of JSON.
	Pretty bool `yaml:"pretty"`

	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures and installs the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name.
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
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

func parseLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}

	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// ForSurface tags a logger with the API surface it talks to.
func ForSurface(logger zerolog.Logger, surface string) zerolog.Logger {
	return logger.With().Str(FieldSurface, surface).Logger()
}

// Level usage:
//
// Debug: cache hits, conditional requests, individual pages fetched,
// websocket frames.
//
// Info: server start/stop, API key derivation, pagination runs finished,
// stream (re)connects.
//
// Warn: 429 cooldowns, retries, cache errors, failed revalidation.
//
// Error: requests failed after retries, signing failures, configuration
// errors.
