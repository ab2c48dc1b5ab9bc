// Package output renders command results as text for terminals or as JSON
// for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes results to out and status messages to errOut.
type Formatter struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// NewFormatter creates a formatter. FormatAuto is resolved against out.
func NewFormatter(format Format, out, errOut io.Writer) *Formatter {
	if errOut == nil {
		errOut = io.Discard
	}
	return &Formatter{
		format: DetectFormat(out, format),
		out:    out,
		errOut: errOut,
	}
}

// Format returns the resolved output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the result writer.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Emit writes v as indented JSON, or calls text to render it for humans.
func (f *Formatter) Emit(v any, text func(w io.Writer) error) error {
	if f.IsJSON() || text == nil {
		return writeJSON(f.out, v)
	}
	return text(f.out)
}

// Printf writes formatted text to the result writer.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.out, format, args...)
	return err
}

// Println writes a line to the result writer.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.out, args...)
	return err
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// DetectFormat resolves FormatAuto: text on a terminal, JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto && explicit != "" {
		return explicit
	}
	if isTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format name. Unknown names mean auto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}
