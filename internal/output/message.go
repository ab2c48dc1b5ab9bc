package output

import "fmt"

// Status messages go to the status writer so JSON results stay parseable.

// Successf prints a success message.
func (f *Formatter) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(f.errOut, "✅ "+fmt.Sprintf(format, args...))
}

// Warnf prints a warning.
func (f *Formatter) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(f.errOut, "⚠️  "+fmt.Sprintf(format, args...))
}

// Infof prints an informational message.
func (f *Formatter) Infof(format string, args ...any) {
	_, _ = fmt.Fprintln(f.errOut, "ℹ️  "+fmt.Sprintf(format, args...))
}
