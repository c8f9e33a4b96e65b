// Package logging provides structured logging for smtindex using zerolog.
// Console output is used when stderr is a terminal, JSON otherwise, so the
// same binary reads well interactively and in CI pipelines.
//
// Components log through the context logger, tagged with the source,
// template or operation they work on:
//
//	ctx = logging.WithSource(ctx, "repository")
//	logging.FromContext(ctx).Debug().Int("folders", n).Msg("Walked archive")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is used when a context carries no logger.
var defaultLogger = NewLoggerFromConfig(ConfigFromEnv())

// ConfigFromEnv returns DefaultConfig adjusted by LOG_LEVEL, LOG_FORMAT
// and DEBUG. The CLI replaces the result once flags are parsed.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	} else if os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return cfg
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default logger and zerolog's global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
