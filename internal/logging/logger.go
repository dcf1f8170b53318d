// Package logging builds the diagnostics logger. Diagnostics carry the
// detail that status lines leave out: converter output, exit codes, wrapped
// error chains.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New constructs a zerolog.Logger writing to w.
func New(w io.Writer, debug, console bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// DefaultFile is where diagnostics go when the terminal is owned by the UI.
func DefaultFile() string {
	return filepath.Join(os.TempDir(), "mangamark.log")
}

// OpenFile opens path for appending diagnostics.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
