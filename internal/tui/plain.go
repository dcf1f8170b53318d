package tui

import (
	"fmt"
	"io"
)

// PlainSink prints status lines as they arrive, for non-interactive use.
type PlainSink struct {
	W io.Writer
}

func (s PlainSink) Emit(line string) {
	fmt.Fprintln(s.W, line)
}

// Report is a no-op; plain output carries progress in the status lines.
func (s PlainSink) Report(float64) {}
