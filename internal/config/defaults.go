package config

import "time"

// Universe chain parameters.
const (
	DefaultChainID      = "universe_9000-1"
	DefaultEVMChainID   = 9000
	DefaultChainName    = "Universe Chain"
	DefaultNativeSymbol = "UCC"
	DefaultNativeDenom  = "atucc"
	DefaultDecimals     = 18
	DefaultBech32Prefix = "ucc"

	// DefaultRPCURL is the public RPC endpoint of the Universe chain. It is also
	// the URL advertised to the provider when the network is registered.
	DefaultRPCURL = "http://145.223.80.193:26657"

	// DefaultProviderRPCURL is where a local wallet provider is expected to listen.
	DefaultProviderRPCURL = "http://127.0.0.1:8545"
)

// Polling defaults.
const (
	DefaultMaxAttempts         = 5
	DefaultPollInterval        = 2 * time.Second
	DefaultRefreshInterval     = 3 * time.Second
	DefaultAccountPollInterval = time.Second
	DefaultCallTimeout         = 5 * time.Second
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.uccwallet",
		Network: NetworkConfig{
			ChainID:      DefaultChainID,
			EVMChainID:   DefaultEVMChainID,
			ChainName:    DefaultChainName,
			NativeSymbol: DefaultNativeSymbol,
			NativeDenom:  DefaultNativeDenom,
			Decimals:     DefaultDecimals,
			Bech32Prefix: DefaultBech32Prefix,
			RPC:          DefaultRPCURL,
			ProviderRPC:  DefaultProviderRPCURL,
		},
		Polling: PollingConfig{
			MaxAttempts:         DefaultMaxAttempts,
			Interval:            DefaultPollInterval,
			RefreshInterval:     DefaultRefreshInterval,
			AccountPollInterval: DefaultAccountPollInterval,
			CallTimeout:         DefaultCallTimeout,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.uccwallet/uccwallet.log",
		},
	}
}
