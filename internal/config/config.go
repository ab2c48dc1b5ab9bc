// Package config provides configuration management for the UCC wallet.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/uccwallet/internal/fileutil"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Network NetworkConfig `yaml:"network"`
	Polling PollingConfig `yaml:"polling"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`

	// Warnings collects non-fatal problems found while applying overrides.
	Warnings []string `yaml:"-"`
}

// NetworkConfig describes the chain the wallet talks to.
type NetworkConfig struct {
	ChainID       string `yaml:"chain_id"`
	EVMChainID    uint64 `yaml:"evm_chain_id"`
	ChainName     string `yaml:"chain_name"`
	NativeSymbol  string `yaml:"native_symbol"`
	NativeDenom   string `yaml:"native_denom"`
	Decimals      int    `yaml:"decimals"`
	Bech32Prefix  string `yaml:"bech32_prefix"`
	RPC           string `yaml:"rpc"`
	ProviderRPC   string `yaml:"provider_rpc"`
	BlockExplorer string `yaml:"block_explorer,omitempty"`
}

// PollingConfig controls background balance refresh and post-send polling.
type PollingConfig struct {
	MaxAttempts         int           `yaml:"max_attempts"`
	Interval            time.Duration `yaml:"interval"`
	RefreshInterval     time.Duration `yaml:"refresh_interval"`
	AccountPollInterval time.Duration `yaml:"account_poll_interval"`
	CallTimeout         time.Duration `yaml:"call_timeout"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from the specified file.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Validate checks the fields the wallet cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if c.Network.Bech32Prefix == "" {
		problems = append(problems, "network.bech32_prefix is empty")
	}
	if c.Network.EVMChainID == 0 {
		problems = append(problems, "network.evm_chain_id is zero")
	}
	if c.Network.Decimals < 0 || c.Network.Decimals > 77 {
		problems = append(problems, "network.decimals out of range")
	}
	if c.Polling.MaxAttempts < 0 {
		problems = append(problems, "polling.max_attempts is negative")
	}
	if c.Polling.Interval < 0 || c.Polling.RefreshInterval < 0 {
		problems = append(problems, "polling intervals must not be negative")
	}

	if len(problems) > 0 {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"problems": strings.Join(problems, "; "),
		})
	}
	return nil
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// StorePath returns the path of the key-value store file.
func StorePath(home string) string {
	return filepath.Join(home, "store.json")
}

// CachePath returns the path of the balance cache file.
func CachePath(home string) string {
	return filepath.Join(home, "balances.json")
}

// GetHome returns the wallet home directory path.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetRPC returns the chain query RPC URL.
func (c *Config) GetRPC() string {
	return c.Network.RPC
}

// GetProviderRPC returns the wallet provider RPC URL.
func (c *Config) GetProviderRPC() string {
	return c.Network.ProviderRPC
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// ChainIDHex returns the EVM chain id as a 0x-prefixed hex quantity.
func (n NetworkConfig) ChainIDHex() string {
	return fmt.Sprintf("0x%x", n.EVMChainID)
}

// DefaultHome returns the default wallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".uccwallet"
	}
	return filepath.Join(home, ".uccwallet")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
