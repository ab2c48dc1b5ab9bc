package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome         = "UCC_HOME"
	EnvRPC          = "UCC_RPC"
	EnvProviderRPC  = "UCC_PROVIDER_RPC"
	EnvOutputFormat = "UCC_OUTPUT_FORMAT"
	EnvVerbose      = "UCC_VERBOSE"
	EnvLogLevel     = "UCC_LOG_LEVEL"
	EnvCallTimeout  = "UCC_CALL_TIMEOUT"
	EnvNoColor      = "NO_COLOR"
)

var (
	// ErrInvalidRPCURL indicates an RPC URL that cannot be used at all.
	ErrInvalidRPCURL = errors.New("invalid RPC URL")

	// ErrInsecureRPCURL indicates a plain-http RPC URL pointing off the local machine.
	ErrInsecureRPCURL = errors.New("insecure RPC URL")
)

// environment mirrors the overridable settings. Pointer fields stay nil when
// the variable is unset, so an empty value can still be told apart.
type environment struct {
	Home         *string        `envconfig:"UCC_HOME"`
	RPC          *string        `envconfig:"UCC_RPC"`
	ProviderRPC  *string        `envconfig:"UCC_PROVIDER_RPC"`
	OutputFormat *string        `envconfig:"UCC_OUTPUT_FORMAT"`
	Verbose      *string        `envconfig:"UCC_VERBOSE"`
	LogLevel     *string        `envconfig:"UCC_LOG_LEVEL"`
	CallTimeout  *time.Duration `envconfig:"UCC_CALL_TIMEOUT"`
	NoColor      *string        `envconfig:"NO_COLOR"`
}

// ApplyEnvironment applies environment variable overrides to the configuration.
// URLs that fail validation are still applied when merely insecure; a warning
// is appended to cfg.Warnings instead.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.Home != nil && *env.Home != "" {
		cfg.Home = *env.Home
	}

	if env.RPC != nil && *env.RPC != "" {
		if u, ok := cfg.acceptURL(EnvRPC, *env.RPC); ok {
			cfg.Network.RPC = u
		}
	}

	if env.ProviderRPC != nil && *env.ProviderRPC != "" {
		if u, ok := cfg.acceptURL(EnvProviderRPC, *env.ProviderRPC); ok {
			cfg.Network.ProviderRPC = u
		}
	}

	if env.OutputFormat != nil && *env.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(*env.OutputFormat))
	}

	if env.Verbose != nil && *env.Verbose != "" {
		cfg.Output.Verbose = parseBool(*env.Verbose)
	}

	if env.LogLevel != nil && *env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*env.LogLevel))
	}

	if env.CallTimeout != nil && *env.CallTimeout > 0 {
		cfg.Polling.CallTimeout = *env.CallTimeout
	}

	// NO_COLOR disables colored output, whatever its value
	if env.NoColor != nil {
		cfg.Output.Color = "never"
	}

	return nil
}

func (c *Config) acceptURL(name, raw string) (string, bool) {
	u := SanitizeURL(raw)
	err := ValidateRPCURL(u)
	switch {
	case err == nil:
		return u, true
	case errors.Is(err, ErrInsecureRPCURL):
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s: %v", name, err))
		return u, true
	default:
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s ignored: %v", name, err))
		return "", false
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(raw string) string {
	return sanitize.URL(strings.TrimSpace(raw))
}

// ValidateRPCURL checks that raw is usable as a JSON-RPC endpoint.
// An empty URL is valid and means "not configured". Plain http or ws to a
// non-loopback host returns ErrInsecureRPCURL.
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
	}

	switch u.Scheme {
	case "https", "wss":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidRPCURL)
		}
		return nil
	case "http", "ws":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidRPCURL)
		}
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("%w: %s traffic to %s is unencrypted", ErrInsecureRPCURL, u.Scheme, u.Hostname())
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRPCURL, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
