package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/uccwallet/internal/config"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// ErrUnknownConfigPath is returned for a path no setting lives at.
var ErrUnknownConfigPath = &walleterr.WalletError{
	Code:       "UNKNOWN_CONFIG_PATH",
	Message:    "unknown configuration path",
	Suggestion: "Run 'uccwallet config show' to list the settings",
	ExitCode:   walleterr.ExitNotFound,
}

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify uccwallet configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.uccwallet/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  uccwallet config init
  uccwallet config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, after environment overrides.`,
	Example: `  uccwallet config show
  uccwallet config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation: network.*, polling.*, output.* and logging.*.`,
	Example: `  uccwallet config get network.provider_rpc
  uccwallet config get polling.max_attempts`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigPath,
	RunE:              runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path and save the file.

Durations use Go syntax (500ms, 2s, 1m). RPC URLs must be https, or http
on the local machine; other http URLs are accepted with a warning.`,
	Example: `  uccwallet config set network.provider_rpc http://127.0.0.1:8545
  uccwallet config set polling.interval 3s
  uccwallet config set logging.level debug`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigPath,
	RunE:              runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = "config"
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	configPath := config.Path(cc.Config.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return walleterr.WithSuggestion(
			walleterr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Config.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network.provider_rpc: The wallet provider endpoint")
	outln(w, "  - network.rpc: The chain RPC used for balances and tokens")
	outln(w, "  - output.default_format: Output format (text/json)")
	outln(w, "  - logging.level: Log level (off/error/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	values := configValues(cc.Config)

	return cc.formatterFor(cmd).Emit(values, func(w io.Writer) error {
		writeConfigSummary(w, cc.Config)
		data, err := yaml.Marshal(cc.Config)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	field, ok := configFields()[args[0]]
	if !ok {
		return walleterr.WithDetails(ErrUnknownConfigPath, map[string]string{"path": args[0]})
	}

	outln(cmd.OutOrStdout(), field.get(cc.Config))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)
	path, value := args[0], args[1]

	field, ok := configFields()[path]
	if !ok {
		return walleterr.WithDetails(ErrUnknownConfigPath, map[string]string{"path": path})
	}

	configPath := config.Path(cc.Config.Home)
	current, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	warning, err := field.set(current, value)
	if err != nil {
		return walleterr.WithDetails(walleterr.WithCause(errInvalidInput, err), map[string]string{"path": path})
	}
	if err := current.Validate(); err != nil {
		return err
	}
	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	f := cc.formatterFor(cmd)
	if warning != "" {
		f.Warnf("%s", warning)
	}
	out(cmd.OutOrStdout(), "Set %s = %s\n", path, field.get(current))
	return nil
}

func completeConfigPath(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return configPaths(), cobra.ShellCompDirectiveNoFileComp
}

// configField reads and writes one setting.
type configField struct {
	get func(*config.Config) string
	// set returns a warning for accepted but questionable values.
	set func(c *config.Config, v string) (string, error)
}

func configValues(c *config.Config) map[string]string {
	fields := configFields()
	values := make(map[string]string, len(fields))
	for path, f := range fields {
		values[path] = f.get(c)
	}
	return values
}

// configPaths returns every settable path, sorted.
func configPaths() []string {
	fields := configFields()
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

//nolint:funlen // one entry per setting
func configFields() map[string]configField {
	return map[string]configField{
		"network.chain_id":       stringField(func(c *config.Config) *string { return &c.Network.ChainID }),
		"network.chain_name":     stringField(func(c *config.Config) *string { return &c.Network.ChainName }),
		"network.native_symbol":  stringField(func(c *config.Config) *string { return &c.Network.NativeSymbol }),
		"network.native_denom":   stringField(func(c *config.Config) *string { return &c.Network.NativeDenom }),
		"network.bech32_prefix":  stringField(func(c *config.Config) *string { return &c.Network.Bech32Prefix }),
		"network.block_explorer": stringField(func(c *config.Config) *string { return &c.Network.BlockExplorer }),
		"network.rpc":            urlField(func(c *config.Config) *string { return &c.Network.RPC }),
		"network.provider_rpc":   urlField(func(c *config.Config) *string { return &c.Network.ProviderRPC }),
		"network.evm_chain_id": {
			get: func(c *config.Config) string { return strconv.FormatUint(c.Network.EVMChainID, 10) },
			set: func(c *config.Config, v string) (string, error) {
				n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
				if err != nil {
					return "", err
				}
				c.Network.EVMChainID = n
				return "", nil
			},
		},
		"network.decimals":     intField(func(c *config.Config) *int { return &c.Network.Decimals }),
		"polling.max_attempts": intField(func(c *config.Config) *int { return &c.Polling.MaxAttempts }),
		"polling.interval":     durationField(func(c *config.Config) *time.Duration { return &c.Polling.Interval }),
		"polling.refresh_interval": durationField(func(c *config.Config) *time.Duration {
			return &c.Polling.RefreshInterval
		}),
		"polling.account_poll_interval": durationField(func(c *config.Config) *time.Duration {
			return &c.Polling.AccountPollInterval
		}),
		"polling.call_timeout":  durationField(func(c *config.Config) *time.Duration { return &c.Polling.CallTimeout }),
		"output.default_format": choiceField(func(c *config.Config) *string { return &c.Output.DefaultFormat }, "text", "json", "auto"),
		"output.color":          choiceField(func(c *config.Config) *string { return &c.Output.Color }, "auto", "always", "never"),
		"output.verbose":        boolField(func(c *config.Config) *bool { return &c.Output.Verbose }),
		"logging.level":         choiceField(func(c *config.Config) *string { return &c.Logging.Level }, "off", "error", "debug"),
		"logging.file":          stringField(func(c *config.Config) *string { return &c.Logging.File }),
		"logging.json":          boolField(func(c *config.Config) *bool { return &c.Logging.JSON }),
	}
}

func stringField(at func(*config.Config) *string) configField {
	return configField{
		get: func(c *config.Config) string { return *at(c) },
		set: func(c *config.Config, v string) (string, error) {
			*at(c) = strings.TrimSpace(v)
			return "", nil
		},
	}
}

func urlField(at func(*config.Config) *string) configField {
	return configField{
		get: func(c *config.Config) string { return *at(c) },
		set: func(c *config.Config, v string) (string, error) {
			u := config.SanitizeURL(v)
			err := config.ValidateRPCURL(u)
			switch {
			case err == nil:
				*at(c) = u
				return "", nil
			case errors.Is(err, config.ErrInsecureRPCURL):
				*at(c) = u
				return err.Error(), nil
			default:
				return "", err
			}
		},
	}
}

func intField(at func(*config.Config) *int) configField {
	return configField{
		get: func(c *config.Config) string { return strconv.Itoa(*at(c)) },
		set: func(c *config.Config, v string) (string, error) {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return "", err
			}
			*at(c) = n
			return "", nil
		},
	}
}

func boolField(at func(*config.Config) *bool) configField {
	return configField{
		get: func(c *config.Config) string { return strconv.FormatBool(*at(c)) },
		set: func(c *config.Config, v string) (string, error) {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return "", err
			}
			*at(c) = b
			return "", nil
		},
	}
}

func durationField(at func(*config.Config) *time.Duration) configField {
	return configField{
		get: func(c *config.Config) string { return at(c).String() },
		set: func(c *config.Config, v string) (string, error) {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return "", err
			}
			*at(c) = d
			return "", nil
		},
	}
}

func choiceField(at func(*config.Config) *string, choices ...string) configField {
	return configField{
		get: func(c *config.Config) string { return *at(c) },
		set: func(c *config.Config, v string) (string, error) {
			v = strings.ToLower(strings.TrimSpace(v))
			for _, choice := range choices {
				if v == choice {
					*at(c) = v
					return "", nil
				}
			}
			return "", fmt.Errorf("%q is not one of %s", v, strings.Join(choices, ", "))
		},
	}
}
