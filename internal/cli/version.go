package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

const unknownBuildValue = "unknown"

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // set once from main before Execute
var buildInfo BuildInfo

// SetBuildInfo records the linker-provided build metadata.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// formatVersion renders build metadata on one line, filling blanks.
func formatVersion(info BuildInfo) string {
	v, c, d := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if c == "" {
		c = unknownBuildValue
	}
	if d == "" {
		d = unknownBuildValue
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// VersionView is the JSON output of version.
type VersionView struct {
	BuildInfo

	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Print the version, commit and build date of this binary.`,
	Example: `  uccwallet version
  uccwallet version -o json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.GroupID = "config"
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	view := &VersionView{
		BuildInfo: buildInfo,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	return commandContext(cmd).formatterFor(cmd).Emit(view, func(w io.Writer) error {
		out(w, "uccwallet %s\n", formatVersion(buildInfo))
		out(w, "%s %s\n", view.GoVersion, view.Platform)
		return nil
	})
}
