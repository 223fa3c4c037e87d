// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Service string
	Env     string // e.g. "DEV", "PROD"
	Level   string // e.g. "debug", "info", "warn", "error"
}

// New builds a logger writing to w. DEV environments get the console writer,
// everything else gets JSON lines.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(cfg.Env, "DEV") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Logger()
}

// Setup installs the logger as the zerolog global.
func Setup(cfg Config) zerolog.Logger {
	logger := New(cfg, os.Stdout)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}

func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
