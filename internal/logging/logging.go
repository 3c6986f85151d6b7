// Package logging wires up the zerolog logger shared by both daemons.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a console-writer zerolog logger at the given level name
// ("debug", "info", "warn", "error"). An unrecognized level falls back
// to info.
func New(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Caller().Logger()
}
