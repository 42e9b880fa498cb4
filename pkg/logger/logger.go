// Package logger builds the structured zerolog logger used across the
// application. A single Config controls verbosity and whether output is
// the human-readable console writer (development) or newline-delimited
// JSON (production/systemd journal capture).
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string // "debug", "info", "warn", "error" (default "info")
	Pretty bool   // human-readable console output instead of JSON
}

// New builds a zerolog.Logger writing to stderr.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer = os.Stderr
	if cfg.Pretty {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(console).With().Timestamp().Logger()
	}

	return zerolog.New(writer).With().Timestamp().Logger()
}
