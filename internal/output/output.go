// Package output prints the status lines CLI commands write around their
// main work. Progress and result rendering live in internal/ui; this
// package covers the icon-plus-message lines only.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Writer prints icon-prefixed status lines.
type Writer struct {
	out io.Writer
}

// New creates a Writer printing to out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Statusf prints one status line. An empty icon indents the message so it
// stays aligned under iconed lines. Write errors are ignored; there is
// nothing useful to do when stdout is gone.
func (w *Writer) Statusf(icon, format string, args ...any) {
	if icon == "" {
		icon = "  "
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

// Successf prints a line with the success mark.
func (w *Writer) Successf(format string, args ...any) {
	w.Statusf("✅", format, args...)
}

// Code prints an indented command block surrounded by blank lines, for
// copy-paste next steps.
func (w *Writer) Code(block string) {
	w.Newline()
	for _, line := range strings.Split(block, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	w.Newline()
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
