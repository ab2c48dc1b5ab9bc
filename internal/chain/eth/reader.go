// Package eth implements chain.Reader for the Universe chain's EVM
// JSON-RPC endpoint using go-ethereum's ethclient.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/metrics"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Compile-time interface check
var _ chain.Reader = (*Reader)(nil)

// ErrRPCURLRequired indicates the RPC URL was not provided.
var ErrRPCURLRequired = &walleterr.WalletError{
	Code:     "RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: walleterr.ExitInput,
}

// Options tunes a Reader.
type Options struct {
	// Retry overrides chain.DefaultRetryConfig for transport failures.
	Retry *chain.RetryConfig
	// HTTPClient overrides the HTTP client used by the RPC connection.
	HTTPClient *http.Client
	// Metrics receives call counts; defaults to metrics.Global.
	Metrics *metrics.Metrics
}

// Reader answers read-only chain queries. The connection is dialed on
// first use and shared afterwards.
type Reader struct {
	url        string
	retry      chain.RetryConfig
	httpClient *http.Client
	metrics    *metrics.Metrics

	mu     sync.Mutex
	client *ethclient.Client
}

// NewReader creates a reader for the given JSON-RPC URL.
func NewReader(url string, opts *Options) (*Reader, error) {
	if url == "" {
		return nil, ErrRPCURLRequired
	}

	r := &Reader{
		url:     url,
		retry:   chain.DefaultRetryConfig(),
		metrics: metrics.Global,
	}
	if opts != nil {
		if opts.Retry != nil {
			r.retry = *opts.Retry
		}
		if opts.HTTPClient != nil {
			r.httpClient = opts.HTTPClient
		}
		if opts.Metrics != nil {
			r.metrics = opts.Metrics
		}
	}
	return r, nil
}

// URL returns the endpoint this reader talks to.
func (r *Reader) URL() string {
	return r.url
}

// GetCode returns the bytecode deployed at addr.
func (r *Reader) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	return do(ctx, r, "eth_getCode", func(c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, addr, nil)
	})
}

// GetNativeBalance returns the native balance of addr in base units.
func (r *Reader) GetNativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return do(ctx, r, "eth_getBalance", func(c *ethclient.Client) (*big.Int, error) {
		return c.BalanceAt(ctx, addr, nil)
	})
}

// Call executes eth_call against contract at the latest block.
func (r *Reader) Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	return do(ctx, r, "eth_call", func(c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	})
}

// BlockNumber returns the latest block height.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	return do(ctx, r, "eth_blockNumber", func(c *ethclient.Client) (uint64, error) {
		return c.BlockNumber(ctx)
	})
}

// Close releases the underlying connection.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}

func (r *Reader) connect(ctx context.Context) (*ethclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	var opts []gethrpc.ClientOption
	if r.httpClient != nil {
		opts = append(opts, gethrpc.WithHTTPClient(r.httpClient))
	}

	rc, err := gethrpc.DialOptions(ctx, r.url, opts...)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrProviderUnavailable, fmt.Errorf("dialing %s: %w", r.url, err))
	}
	r.client = ethclient.NewClient(rc)
	return r.client, nil
}

// do runs one RPC with retry on transport failures and records metrics.
func do[T any](ctx context.Context, r *Reader, method string, fn func(*ethclient.Client) (T, error)) (T, error) {
	var zero T

	client, err := r.connect(ctx)
	if err != nil {
		return zero, err
	}

	result, err := chain.RetryWithConfig(ctx, r.retry, func() (T, error) {
		start := time.Now()
		v, callErr := fn(client)
		r.metrics.RecordRPCCall(metrics.SourceChain, time.Since(start), callErr)
		return v, classify(callErr)
	})
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// classify marks transport failures as retryable. Errors returned by the
// node itself, such as a revert, are final.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return err
	}

	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", chain.ErrRateLimited, err)
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return chain.WrapRetryable(err)
		default:
			return err
		}
	}

	return chain.WrapRetryable(err)
}
