// Package logging builds the zerolog loggers used by the samples.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to w. An unrecognised level falls back to
// info; an unrecognised format falls back to console. A nil w means stderr.
// Writes to w are serialized, so the logger may be shared by goroutines
// even when w itself is not safe for concurrent use.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	w = zerolog.SyncWriter(w)
	if strings.ToLower(format) != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithRun tags every entry of the returned logger with a fresh run id, so
// the lines of one invocation can be told apart from the next.
func WithRun(l zerolog.Logger) zerolog.Logger {
	return l.With().Str("run_id", uuid.NewString()).Logger()
}

// WithRole tags every entry with the role of the task that emits it.
func WithRole(l zerolog.Logger, role string) zerolog.Logger {
	return l.With().Str("role", role).Logger()
}
