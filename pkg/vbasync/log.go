package vbasync

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the logger a run and its packages share. Lines are
// plain console text with RFC3339 timestamps, and every line carries
// lib=vbasync so the output can be told apart when the packages are
// embedded in another program.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Str("lib", "vbasync").
		Logger()
}

// testLevels maps a -v count to a level; larger counts log everything.
var testLevels = []zerolog.Level{zerolog.WarnLevel, zerolog.InfoLevel, zerolog.DebugLevel}

// NewTestLogger creates a logger for tests. Verbosity 0 shows warnings,
// 1 run summaries, 2 per-module decisions and 3 or more record tracing.
func NewTestLogger(w io.Writer, verbose int) zerolog.Logger {
	level := zerolog.TraceLevel
	if verbose >= 0 && verbose < len(testLevels) {
		level = testLevels[verbose]
	}
	return NewLogger(w, level)
}

// LogLevelFromString parses the log_level setting or --log-level flag.
// Names are case-insensitive; an unset level means warn, matching the
// command line default where only problems are reported.
func LogLevelFromString(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.WarnLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(levelStr))
}

// DefaultLogger logs warnings and errors to stderr.
func DefaultLogger() zerolog.Logger {
	return NewLogger(os.Stderr, zerolog.WarnLevel)
}
