package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewComponentLogger builds the zerolog logger handed to components that log
// through zerolog rather than slog (the sandbox index). Records go to the
// same sink as the slog side so a session stays in one file.
func NewComponentLogger(component, level string, file io.Writer) zerolog.Logger {
	out := file
	if out == nil {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
