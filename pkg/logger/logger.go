// Package logger builds the process-wide zerolog.Logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls how the root logger is constructed.
type Config struct {
	Level  string // debug|info|warn|error, defaults to info
	Pretty bool   // human-readable console output instead of JSON
}

// New builds a root zerolog.Logger and sets the package-global level.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writer = os.Stdout
	logger := zerolog.New(writer).With().Timestamp().Caller().Logger()

	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339})
	}

	return logger
}

// SetGlobalLogger installs l as the zerolog/log package's global logger.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
