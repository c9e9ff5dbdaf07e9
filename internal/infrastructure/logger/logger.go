package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "chat-client"

var (
	globalLogger zerolog.Logger
	once         sync.Once
)

// GetLogger returns the bootstrap logger used before configuration is
// loaded: console output on stderr at info level, tagged with the service
// name so early fatals are attributable.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		globalLogger = zerolog.New(w).With().Timestamp().Str("service", defaultService).Logger().Level(zerolog.InfoLevel)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	return globalLogger
}

// New builds the configured logger. Format is "json" for ingestion
// pipelines or "console" for local development.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "json":
		out = os.Stdout
	case "console":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	globalLogger = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	return globalLogger, nil
}
