// Package logx is a thin structured-logging facade over zerolog.
// It keeps a package-level default logger configured from the environment so
// call sites stay as simple as logx.Info("...") or
// logx.WithFields(logx.Fields{...}).Error("...").
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Fields is a map of structured log fields
type Fields map[string]interface{}

// Level mirrors zerolog levels through a stable local type
type Level int8

const (
	LevelTrace Level = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var defaultLogger = newFromEnv()

func newFromEnv() zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	return logger.Level(parseLevel(os.Getenv("LOG_LEVEL")))
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel sets the level of the default logger
func SetLevel(level Level) {
	defaultLogger = defaultLogger.Level(zerolog.Level(level))
}

// SetOutput redirects the default logger. Mainly for tests.
func SetOutput(w io.Writer) {
	defaultLogger = defaultLogger.Output(w)
}

// Trace logs a trace level message
func Trace(msg string) { defaultLogger.Trace().Msg(msg) }

// Debug logs a debug level message
func Debug(msg string) { defaultLogger.Debug().Msg(msg) }

// Info logs an info level message
func Info(msg string) { defaultLogger.Info().Msg(msg) }

// Warn logs a warning level message
func Warn(msg string) { defaultLogger.Warn().Msg(msg) }

// Error logs an error level message
func Error(msg string) { defaultLogger.Error().Msg(msg) }

// Fatal logs a fatal level message and exits
func Fatal(msg string) { defaultLogger.Fatal().Msg(msg) }

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) { defaultLogger.Debug().Msgf(format, args...) }

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) { defaultLogger.Info().Msgf(format, args...) }

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) { defaultLogger.Warn().Msgf(format, args...) }

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) { defaultLogger.Error().Msgf(format, args...) }

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, args ...interface{}) { defaultLogger.Fatal().Msgf(format, args...) }
