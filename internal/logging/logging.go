// Package logging configures the zerolog logger shared by the CLI and the dashboard.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(level string, w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
}

// JSON returns a structured logger without console formatting, for log shippers.
func JSON(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// ValidLevel reports whether level names a zerolog level.
func ValidLevel(level string) bool {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	return err == nil && lvl != zerolog.NoLevel
}

func parseLevel(level string) zerolog.Level {
	if !ValidLevel(level) {
		return zerolog.InfoLevel
	}
	lvl, _ := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	return lvl
}
