// Package cli implements the uccwallet command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/kvstore"
	"github.com/mrz1836/uccwallet/internal/output"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	ephemeral    bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	enrichHelpOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "uccwallet",
	Short: "A terminal wallet for the Universe chain",
	Long: `uccwallet is a terminal wallet for the Universe chain (UCC).

Accounts are shown in both their 0x hex form and their ucc1 bech32 form.
Signing is delegated to a wallet provider reachable over JSON-RPC; the CLI
itself only handles keys on the offline generate and import paths.`,
	Example: `  uccwallet wallet generate --backup ~/ucc-backup.age
  uccwallet connect
  uccwallet balance
  uccwallet send ucc1... 1.5`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(); err != nil {
			return err
		}
		if GetCmdContext(cmd) == nil {
			SetCmdContext(cmd, defaultCommandContext())
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	enrichHelpOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	err := rootCmd.Execute()
	if err != nil {
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return walleterr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandHome(home)

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		// A corrupt file is reported; an unreadable one falls back to defaults
		if errors.Is(err, walleterr.ErrConfigInvalid) {
			return err
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	if err := config.ApplyEnvironment(cfg); err != nil {
		return walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}

	// Flags win over the file and the environment
	if homeDir != "" {
		cfg.Home = config.ExpandHome(homeDir)
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	if cfg.Logging.JSON {
		logger, err = config.NewStructuredLogger(logLevel, cfg.Logging.File)
	} else {
		logger, err = config.NewLogger(logLevel, cfg.Logging.File)
	}
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), os.Stdout, os.Stderr)

	for _, w := range cfg.Warnings {
		formatter.Warnf("%s", w)
	}

	return nil
}

// defaultCommandContext wires the globals into the dependencies commands use.
func defaultCommandContext() *CommandContext {
	var store kvstore.Store
	if ephemeral {
		store = kvstore.NewMemoryStore()
	} else {
		store = kvstore.NewFileStore(config.StorePath(cfg.Home))
	}
	return NewCommandContext(cfg, logger, formatter).WithStore(store)
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		closeLog(logger)
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "wallet", Title: "Wallet Operations:"},
		&cobra.Group{ID: "chain", Title: "Chain & Tokens:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID("config")

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "uccwallet data directory (default: ~/.uccwallet)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep wallet and token state in memory only")
}
