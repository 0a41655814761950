// Package loggingx wires a zerolog.Logger into avi and cmd/avixer without resorting to a package-level global. Components take a
// zerolog.Logger field (zero value is the discard logger) rather than
// reaching for a singleton.
package loggingx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a human-readable console logger, the way a single CLI binary
// wants its own logs formatted, as opposed to the JSON-lines logger a
// server process would want.
func New() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Discard returns a logger that drops every event; it is the zero-cost
// default for library use that never calls New or NewWith explicitly.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// NewWith builds a logger writing to an arbitrary sink, for tests that want
// to capture output.
func NewWith(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
