package cli

import (
	"io"

	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/output"
)

// Compile-time interface checks.
var (
	_ ConfigProvider = (*config.Config)(nil)
	_ LogWriter      = (*config.Logger)(nil)
	_ FormatProvider = (*output.Formatter)(nil)
)

// ConfigProvider provides read access to the settings commands report on.
type ConfigProvider interface {
	// GetHome returns the uccwallet home directory path.
	GetHome() string

	// GetRPC returns the chain RPC URL used for reads.
	GetRPC() string

	// GetProviderRPC returns the wallet provider URL.
	GetProviderRPC() string

	GetLoggingLevel() string
	GetLoggingFile() string
	GetOutputFormat() string
	IsVerbose() bool
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
	Close() error
}

// FormatProvider provides output format information.
type FormatProvider interface {
	Format() output.Format
}

// writeConfigSummary prints where state lives and which endpoints are used,
// as YAML comments so the output stays valid YAML.
func writeConfigSummary(w io.Writer, cp ConfigProvider) {
	logFile := cp.GetLoggingFile()
	if logFile == "" {
		logFile = "stderr"
	}
	out(w, "# home:     %s\n", cp.GetHome())
	out(w, "# chain:    %s\n", cp.GetRPC())
	out(w, "# provider: %s\n", cp.GetProviderRPC())
	out(w, "# logging:  %s to %s\n", cp.GetLoggingLevel(), logFile)
	out(w, "# output:   %s (verbose: %t)\n", cp.GetOutputFormat(), cp.IsVerbose())
}

// closeLog flushes and closes l, reporting a failed close through l itself.
func closeLog(l LogWriter) {
	if err := l.Close(); err != nil {
		l.Debug("closing log: %v", err)
	}
}

// formatOf returns the format of p, or text when there is none.
func formatOf(p FormatProvider) output.Format {
	if p == nil {
		return output.FormatText
	}
	return p.Format()
}
