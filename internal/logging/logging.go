// Package logging builds the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a root logger. With console=true it writes human-readable
// lines; otherwise structured JSON on stdout.
//
// Loggers carry no instance level; filtering goes through the global
// gate so SetLevel can retune a running process.
func New(level string, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"
	zerolog.DurationFieldUnit = time.Millisecond

	var l zerolog.Logger
	if console {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
		l = zerolog.New(cw)
	} else {
		l = zerolog.New(os.Stdout)
	}
	SetLevel(level)
	return l.With().Timestamp().Logger()
}

// SetLevel adjusts the process-wide level gate. It takes effect
// immediately for every logger derived from New.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
