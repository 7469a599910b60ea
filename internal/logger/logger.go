package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/alevsk/bicep-deployer/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the logger using the application configuration
func Init(cfg *config.Config) {
	InitWithWriter(cfg, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// InitWithWriter is Init with an explicit output, mostly useful in tests
func InitWithWriter(cfg *config.Config, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Server.LogLevel))
	// the debug flag wins over whatever level is configured
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel converts a textual log level into a zerolog level, defaulting to info
func ParseLevel(value string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

// Debug logs a debug message if debug mode is enabled
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return log.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal logs a fatal message and exits with status code 1
func Fatal() *zerolog.Event {
	return log.Fatal()
}
