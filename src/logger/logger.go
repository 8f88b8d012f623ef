package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"market-sync/src/models"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	base   zerolog.Logger
	logger zerolog.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. cfg may be nil (INFO level).
func NewLogger(cfg *models.MConfig, name string) *Logger {
	level := zerolog.InfoLevel
	if cfg != nil {
		level = parseLevel(cfg.LogLevel)
	}

	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	base := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{
		name:   name,
		base:   base,
		logger: base.With().Str("component", name).Logger(),
	}
}

// -----------------------------------------------------------------------------

// Nop returns a logger that discards everything (tests).
func Nop() *Logger {
	return &Logger{name: "nop", base: zerolog.Nop(), logger: zerolog.Nop()}
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARNING", "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Named derives a logger for a sub-component sharing the same level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		base:   l.base,
		logger: l.base.With().Str("component", name).Logger(),
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
