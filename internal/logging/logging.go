// Package logging configures zerolog for the CLI and its libraries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// New returns a logger writing to stderr. An unparseable level falls back to info.
func New(level string, format Format, service string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format, service)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, level string, format Format, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()
}
