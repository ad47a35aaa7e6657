// Package logger provides the engine's operational logger, a thin
// wrapper over zerolog matching the printf-style call sites used
// throughout the rest of the module.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Configure replaces the global logger, e.g. to switch to JSON output in
// production or adjust the minimum level.
func Configure(jsonOutput bool, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()

	var w zerolog.Logger
	if jsonOutput {
		w = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	log = w.Level(level)
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Infof(format string, args ...any) {
	current().Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	current().Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	current().Error().Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	current().Debug().Msgf(format, args...)
}

// WithField returns an event builder carrying a structured field, for
// call sites that want richer context than a formatted string.
func WithField(key string, value any) *zerolog.Event {
	return current().Info().Interface(key, value)
}
