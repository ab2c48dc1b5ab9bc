package token

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	errReverted    = errors.New("execution reverted")
	errUnreachable = errors.New("connection refused")
)

type callFunc func(ctx context.Context, data []byte) ([]byte, error)

// fakeChain serves GetCode and eth_call per contract and selector.
type fakeChain struct {
	mu    sync.Mutex
	code  map[common.Address][]byte
	calls map[common.Address]map[string]callFunc
	count map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		code:  make(map[common.Address][]byte),
		calls: make(map[common.Address]map[string]callFunc),
		count: make(map[string]int),
	}
}

func (f *fakeChain) deploy(addr common.Address, handlers map[string]callFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code[addr] = []byte{0x60, 0x80}
	f.calls[addr] = handlers
}

func (f *fakeChain) GetCode(_ context.Context, addr common.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[addr], nil
}

func (f *fakeChain) Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	sel := hex.EncodeToString(data[:4])

	f.mu.Lock()
	f.count[sel]++
	h, ok := f.calls[contract][sel]
	f.mu.Unlock()

	if !ok {
		return nil, errReverted
	}
	return h(ctx, data)
}

func (f *fakeChain) Calls(sel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count[strings.TrimPrefix(sel, "0x")]
}

func returns(out []byte) callFunc {
	return func(context.Context, []byte) ([]byte, error) { return out, nil }
}

func fails(err error) callFunc {
	return func(context.Context, []byte) ([]byte, error) { return nil, err }
}

func hangs() callFunc {
	return func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func packString(s string) []byte {
	out, err := stringArgs.Pack(s)
	if err != nil {
		panic(err)
	}
	return out
}

func packUint(n int64) []byte {
	out, err := abi.Arguments{{Type: mustType("uint256")}}.Pack(big.NewInt(n))
	if err != nil {
		panic(err)
	}
	return out
}

func bytes32(s string) []byte {
	out := make([]byte, 32)
	copy(out, s)
	return out
}

// standardToken deploys a well-behaved ERC-20 at addr.
func standardToken(f *fakeChain, addr common.Address, name, symbol string, decimals int64) {
	f.deploy(addr, map[string]callFunc{
		"06fdde03": returns(packString(name)),
		"95d89b41": returns(packString(symbol)),
		"313ce567": returns(packUint(decimals)),
	})
}

// withBalances adds a balanceOf handler answering from balances.
func (f *fakeChain) withBalances(addr common.Address, balances map[common.Address]*big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[addr]["70a08231"] = func(_ context.Context, data []byte) ([]byte, error) {
		owner := common.BytesToAddress(data[4:36])
		bal, ok := balances[owner]
		if !ok {
			return nil, errUnreachable
		}
		return common.LeftPadBytes(bal.Bytes(), 32), nil
	}
}

// countingResolver wraps a resolver and counts Resolve calls.
type countingResolver struct {
	inner MetadataResolver
	mu    sync.Mutex
	n     int
}

func (c *countingResolver) Resolve(ctx context.Context, addr common.Address) (*Metadata, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.inner.Resolve(ctx, addr)
}

func (c *countingResolver) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
