// Package provider adapts an external wallet provider to the wallet core.
//
// The provider owns keys and signing. The core only asks it for accounts,
// network switches and signed sends over JSON-RPC, using the same method
// names a browser-injected provider answers.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/metrics"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Provider error codes (EIP-1193 and EIP-3085).
const (
	CodeUserRejected        = 4001
	CodeUnauthorized        = 4100
	CodeUnsupportedMethod   = 4200
	CodeDisconnected        = 4900
	CodeUnrecognizedNetwork = 4902
)

// ErrInvalidResponse indicates the provider answered with a value the
// wallet cannot use.
var ErrInvalidResponse = &walleterr.WalletError{
	Code:     "PROVIDER_INVALID_RESPONSE",
	Message:  "invalid provider response",
	ExitCode: walleterr.ExitProvider,
}

// NativeCurrency describes the chain's coin as registered with the provider.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// NetworkParams is the wallet_addEthereumChain payload.
type NetworkParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// NetworkFromConfig builds the registration parameters for the configured chain.
func NetworkFromConfig(n config.NetworkConfig) NetworkParams {
	return NetworkParams{
		ChainID:   n.ChainIDHex(),
		ChainName: n.ChainName,
		NativeCurrency: NativeCurrency{
			Name:     n.NativeSymbol,
			Symbol:   n.NativeSymbol,
			Decimals: n.Decimals,
		},
		RPCURLs:           []string{n.RPC},
		BlockExplorerURLs: []string{n.BlockExplorer},
	}
}

// Provider is the capability set the session needs from a wallet provider.
type Provider interface {
	// RequestAccounts asks the provider for account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts returns the currently exposed accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the provider's active EVM chain id.
	ChainID(ctx context.Context) (uint64, error)

	// SwitchNetwork activates the network. Returns ErrUnrecognizedNetwork
	// when the provider does not know it yet.
	SwitchNetwork(ctx context.Context, params NetworkParams) error

	// AddNetwork registers the network with the provider.
	AddNetwork(ctx context.Context, params NetworkParams) error

	// SendTransaction asks the provider to sign and broadcast a native
	// transfer. Returns the transaction hash.
	SendTransaction(ctx context.Context, from, to common.Address, value *big.Int) (string, error)
}

// JSONRPCProvider talks to a wallet provider over JSON-RPC.
type JSONRPCProvider struct {
	url     string
	client  *gethrpc.Client
	metrics *metrics.Metrics
}

// Option configures a JSONRPCProvider.
type Option func(*JSONRPCProvider)

// WithMetrics records provider calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *JSONRPCProvider) {
		p.metrics = m
	}
}

// NewJSONRPCProvider creates a provider backed by client. url is only
// reported back by URL.
func NewJSONRPCProvider(url string, client *gethrpc.Client, opts ...Option) *JSONRPCProvider {
	p := &JSONRPCProvider{url: url, client: client, metrics: metrics.Global}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial creates a provider for the endpoint at url. HTTP endpoints are not
// contacted until the first call.
func Dial(url string, opts ...Option) (*JSONRPCProvider, error) {
	if strings.TrimSpace(url) == "" {
		return nil, walleterr.ErrProviderMissing
	}
	client, err := gethrpc.DialOptions(context.Background(), url)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrProviderMissing, fmt.Errorf("dialing %s: %w", url, err))
	}
	return NewJSONRPCProvider(url, client, opts...), nil
}

// URL returns the provider endpoint.
func (p *JSONRPCProvider) URL() string {
	return p.url
}

// Close releases the connection.
func (p *JSONRPCProvider) Close() {
	p.client.Close()
}

// RequestAccounts implements Provider.
func (p *JSONRPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.accounts(ctx, "eth_requestAccounts")
}

// Accounts implements Provider.
func (p *JSONRPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return p.accounts(ctx, "eth_accounts")
}

func (p *JSONRPCProvider) accounts(ctx context.Context, method string) ([]common.Address, error) {
	var raw []string
	if err := p.call(ctx, &raw, method); err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(raw))
	for _, a := range raw {
		if !common.IsHexAddress(a) {
			return nil, walleterr.WithDetails(ErrInvalidResponse, map[string]string{
				"method":  method,
				"account": a,
			})
		}
		out = append(out, common.HexToAddress(a))
	}
	return out, nil
}

// ChainID implements Provider.
func (p *JSONRPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

type switchParams struct {
	ChainID string `json:"chainId"`
}

// SwitchNetwork implements Provider.
func (p *JSONRPCProvider) SwitchNetwork(ctx context.Context, params NetworkParams) error {
	err := p.call(ctx, nil, "wallet_switchEthereumChain", switchParams{ChainID: params.ChainID})
	if err == nil {
		return nil
	}

	if code, ok := ErrorCode(err); ok && code == CodeUnrecognizedNetwork {
		return walleterr.WithCause(walleterr.ErrUnrecognizedNetwork, err)
	}
	return err
}

// AddNetwork implements Provider.
func (p *JSONRPCProvider) AddNetwork(ctx context.Context, params NetworkParams) error {
	return p.call(ctx, nil, "wallet_addEthereumChain", params)
}

type sendParams struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Value *hexutil.Big `json:"value"`
}

// SendTransaction implements Provider. Any provider error is surfaced as
// ErrBroadcastFailure carrying the provider's message.
func (p *JSONRPCProvider) SendTransaction(ctx context.Context, from, to common.Address, value *big.Int) (string, error) {
	if value == nil {
		value = new(big.Int)
	}

	var hash string
	err := p.call(ctx, &hash, "eth_sendTransaction", sendParams{
		From:  strings.ToLower(from.Hex()),
		To:    strings.ToLower(to.Hex()),
		Value: (*hexutil.Big)(value),
	})
	if err != nil {
		if errors.Is(err, walleterr.ErrProviderMissing) {
			return "", err
		}
		return "", walleterr.WithCause(walleterr.ErrBroadcastFailure, err)
	}
	if hash == "" {
		return "", walleterr.WithCause(walleterr.ErrBroadcastFailure, errEmptyHash)
	}
	return hash, nil
}

var errEmptyHash = errors.New("provider returned an empty transaction hash")

// call performs a request. Failures to reach the provider become
// ErrProviderMissing; errors the provider answered with pass through.
func (p *JSONRPCProvider) call(ctx context.Context, out any, method string, params ...any) error {
	start := time.Now()
	err := p.client.CallContext(ctx, out, method, params...)
	if p.metrics != nil {
		p.metrics.RecordRPCCall(metrics.SourceProvider, time.Since(start), err)
	}
	if err == nil {
		return nil
	}

	var rpcErr gethrpc.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &rpcErr):
		return err
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return walleterr.WithCause(ErrInvalidResponse, fmt.Errorf("%s: %w", method, err))
	case ctx.Err() != nil:
		return err
	default:
		return walleterr.WithCause(walleterr.ErrProviderMissing, fmt.Errorf("%s: %w", method, err))
	}
}

// ErrorCode extracts the provider error code from err.
func ErrorCode(err error) (int, bool) {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether the user declined the request in the provider.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}
