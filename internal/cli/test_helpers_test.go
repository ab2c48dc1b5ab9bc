package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/cache"
	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/kvstore"
	"github.com/mrz1836/uccwallet/internal/metrics"
	"github.com/mrz1836/uccwallet/internal/output"
	"github.com/mrz1836/uccwallet/internal/provider"
	"github.com/mrz1836/uccwallet/internal/session"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

const (
	// Derived from the "abandon ... about" test phrase on m/44'/60'/0'/0/0.
	abandonHex    = "0x9858effd232b4033e47d90003d41ec34ecaeda94"
	abandonPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	testHex      = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	testTokenHex = "0x1111111111111111111111111111111111111111"
)

var errChainDown = errors.New("connection refused")

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, secret string) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origSecret := promptSecretFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptSecretFn = origSecret
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptSecretFn = func() (string, error) { return secret, nil }
}

// bechOf encodes a hex address with the default prefix.
func bechOf(t *testing.T, hexAddr string) string {
	t.Helper()
	bech, err := address.NewCodec(config.DefaultBech32Prefix).HexToBech(hexAddr)
	require.NoError(t, err)
	return bech
}

type erc20 struct {
	name     string
	symbol   string
	decimals int64
	balances map[common.Address]*big.Int
}

// fakeReader is an in-memory chain.
type fakeReader struct {
	mu     sync.Mutex
	native map[common.Address]*big.Int
	tokens map[common.Address]*erc20
	fail   bool
	block  uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		native: make(map[common.Address]*big.Int),
		tokens: make(map[common.Address]*erc20),
	}
}

func (f *fakeReader) setNative(hexAddr string, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.native[common.HexToAddress(hexAddr)] = amount
}

func (f *fakeReader) deploy(hexAddr string, tok *erc20) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[common.HexToAddress(hexAddr)] = tok
}

func (f *fakeReader) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeReader) GetCode(_ context.Context, addr common.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errChainDown
	}
	if _, ok := f.tokens[addr]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (f *fakeReader) GetNativeBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errChainDown
	}
	if bal, ok := f.native[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) Call(_ context.Context, contract common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errChainDown
	}
	tok, ok := f.tokens[contract]
	if !ok || len(data) < 4 {
		return nil, errChainDown
	}
	switch hex.EncodeToString(data[:4]) {
	case "06fdde03":
		return packABI("string", tok.name), nil
	case "95d89b41":
		return packABI("string", tok.symbol), nil
	case "313ce567":
		return packABI("uint8", uint8(tok.decimals)), nil //nolint:gosec // test decimals are small
	case "70a08231":
		owner := common.BytesToAddress(data[4:36])
		bal, ok := tok.balances[owner]
		if !ok {
			bal = new(big.Int)
		}
		return common.LeftPadBytes(bal.Bytes(), 32), nil
	}
	return nil, errChainDown
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block++
	return f.block, nil
}

func packABI(typ string, v any) []byte {
	t, err := abi.NewType(typ, "", nil)
	if err != nil {
		panic(err)
	}
	out, err := abi.Arguments{{Type: t}}.Pack(v)
	if err != nil {
		panic(err)
	}
	return out
}

// fakeProvider is a wallet provider exposing fixed accounts.
type fakeProvider struct {
	mu       sync.Mutex
	accounts []common.Address
	switchFn func() error
	sent     []*big.Int
	added    int
}

func newFakeProvider(accounts ...string) *fakeProvider {
	p := &fakeProvider{}
	for _, a := range accounts {
		p.accounts = append(p.accounts, common.HexToAddress(a))
	}
	return p
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.Accounts(ctx)
}

func (p *fakeProvider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *fakeProvider) setAccounts(accounts ...common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

func (p *fakeProvider) ChainID(context.Context) (uint64, error) {
	return config.DefaultEVMChainID, nil
}

func (p *fakeProvider) SwitchNetwork(context.Context, provider.NetworkParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.switchFn != nil {
		return p.switchFn()
	}
	return nil
}

func (p *fakeProvider) AddNetwork(context.Context, provider.NetworkParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added++
	return nil
}

func (p *fakeProvider) SendTransaction(_ context.Context, _, _ common.Address, value *big.Int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, value)
	return "0xfeedbeef", nil
}

func (p *fakeProvider) sentValues() []*big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*big.Int(nil), p.sent...)
}

// testEnv is a command context backed by fakes and a temp home.
type testEnv struct {
	cc       *CommandContext
	reader   *fakeReader
	provider *fakeProvider
	store    *kvstore.MemoryStore
}

func newTestEnv(t *testing.T, format output.Format) *testEnv {
	t.Helper()

	cfg := config.Defaults()
	cfg.Home = t.TempDir()
	cfg.Polling.MaxAttempts = 2
	cfg.Polling.Interval = 5 * time.Millisecond
	cfg.Polling.RefreshInterval = 10 * time.Millisecond
	cfg.Polling.AccountPollInterval = 10 * time.Millisecond
	cfg.Polling.CallTimeout = time.Second

	env := &testEnv{
		reader:   newFakeReader(),
		provider: newFakeProvider(testHex),
		store:    kvstore.NewMemoryStore(),
	}
	m := &metrics.Metrics{}
	env.cc = NewCommandContext(cfg, config.NullLogger(), output.NewFormatter(format, &bytes.Buffer{}, nil)).
		WithStore(env.store).
		WithMetrics(m).
		WithCache(cache.NewFileStorage(config.CachePath(cfg.Home), m)).
		WithReaderFactory(func(string) (chain.Reader, error) { return env.reader, nil }).
		WithProviderFactory(func(url string) (provider.Provider, error) {
			if url == "" {
				return nil, walleterr.ErrProviderMissing
			}
			return env.provider, nil
		})
	return env
}

// command returns a command bound to the env with captured output.
func (e *testEnv) command() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(context.Background())
	SetCmdContext(cmd, e.cc)
	return cmd, stdout, stderr
}

// rememberWallet stores hexAddr as the remembered wallet.
func (e *testEnv) rememberWallet(t *testing.T, hexAddr string) {
	t.Helper()
	hexOut, bech, err := address.NewCodec(config.DefaultBech32Prefix).Pair(common.HexToAddress(hexAddr))
	require.NoError(t, err)
	require.NoError(t, e.cc.addressBook().SaveWallet(&session.WalletInfo{HexAddress: hexOut, BechAddress: bech}))
}
