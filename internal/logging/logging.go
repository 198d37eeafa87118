// Package logging configures the process-wide zerolog logger for the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger. Init replaces it; the zero value discards
// nothing but logs without timestamps.
var Logger = zerolog.New(os.Stderr)

// Init sets up console output on w (stderr when nil). Verbose enables
// debug-level events.
func Init(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
