package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/config"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.Defaults()
	cfg.Network.RPC = "https://rpc.universe.example"
	cfg.Polling.MaxAttempts = 9
	cfg.Polling.Interval = 750 * time.Millisecond
	cfg.Output.Verbose = true

	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Version, loaded.Version)
	assert.Equal(t, cfg.Network, loaded.Network)
	assert.Equal(t, 9, loaded.Polling.MaxAttempts)
	assert.Equal(t, 750*time.Millisecond, loaded.Polling.Interval)
	assert.True(t, loaded.Output.Verbose)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  rpc: https://alt.example\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://alt.example", cfg.Network.RPC)
	assert.Equal(t, config.DefaultBech32Prefix, cfg.Network.Bech32Prefix)
	assert.Equal(t, config.DefaultMaxAttempts, cfg.Polling.MaxAttempts)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: [unclosed"), 0o600))

	_, err := config.Load(path)
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "~/.uccwallet", cfg.Home)
	assert.Equal(t, "universe_9000-1", cfg.Network.ChainID)
	assert.Equal(t, uint64(9000), cfg.Network.EVMChainID)
	assert.Equal(t, "0x2328", cfg.Network.ChainIDHex())
	assert.Equal(t, "Universe Chain", cfg.Network.ChainName)
	assert.Equal(t, "UCC", cfg.Network.NativeSymbol)
	assert.Equal(t, "atucc", cfg.Network.NativeDenom)
	assert.Equal(t, 18, cfg.Network.Decimals)
	assert.Equal(t, "ucc", cfg.Network.Bech32Prefix)
	assert.Equal(t, 5, cfg.Polling.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 3*time.Second, cfg.Polling.RefreshInterval)
	assert.Equal(t, 5*time.Second, cfg.Polling.CallTimeout)
	assert.Equal(t, "auto", cfg.Output.DefaultFormat)
	assert.Equal(t, "error", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty prefix", func(c *config.Config) { c.Network.Bech32Prefix = "" }},
		{"zero chain id", func(c *config.Config) { c.Network.EVMChainID = 0 }},
		{"negative decimals", func(c *config.Config) { c.Network.Decimals = -1 }},
		{"negative attempts", func(c *config.Config) { c.Polling.MaxAttempts = -3 }},
		{"negative interval", func(c *config.Config) { c.Polling.Interval = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), walleterr.ErrConfigInvalid)
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/w", "config.yaml"), config.Path("/w"))
	assert.Equal(t, filepath.Join("/w", "store.json"), config.StorePath("/w"))
	assert.Equal(t, filepath.Join("/w", "balances.json"), config.CachePath("/w"))
	assert.Equal(t, "/abs/path", config.ExpandHome("/abs/path"))

	home, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, filepath.Join(home, "x"), config.ExpandHome("~/x"))
	}
}
