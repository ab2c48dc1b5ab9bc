package session

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/provider"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

var errLocked = errors.New("wallet is locked")

//nolint:gochecknoglobals // test accounts
var (
	accountA = common.HexToAddress("0x742d35cc6634c0532925a3b844bc454e4438f44e")
	accountB = common.HexToAddress("0x9858effd232b4033e47d90003d41ec34ecaeda94")
)

const (
	bechA = "ucc1wskntnrxxnq9x2f95wuyf0z9fezr3azwzj0gyc"
	bechB = "ucc1npvwllfr9dqr8erajqqr6s0vxnk2ak55zjdlc7"
)

type sentTx struct {
	from, to common.Address
	value    *big.Int
}

// fakeProvider is a scriptable wallet provider.
type fakeProvider struct {
	mu         sync.Mutex
	accounts   []common.Address
	requestErr error
	switchErr  error
	addErr     error
	sendErr    error
	hash       string
	chainID    uint64
	gone       bool
	switched   []provider.NetworkParams
	added      []provider.NetworkParams
	sent       []sentTx
}

func newFakeProvider(accounts ...common.Address) *fakeProvider {
	return &fakeProvider{accounts: accounts, hash: "0xabc123", chainID: 9000}
}

func (f *fakeProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return append([]common.Address(nil), f.accounts...), nil
}

func (f *fakeProvider) Accounts(context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone {
		return nil, walleterr.ErrProviderMissing
	}
	return append([]common.Address(nil), f.accounts...), nil
}

func (f *fakeProvider) ChainID(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone {
		return 0, walleterr.ErrProviderMissing
	}
	return f.chainID, nil
}

func (f *fakeProvider) SwitchNetwork(_ context.Context, params provider.NetworkParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switched = append(f.switched, params)
	return f.switchErr
}

func (f *fakeProvider) AddNetwork(_ context.Context, params provider.NetworkParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, params)
	return f.addErr
}

func (f *fakeProvider) SendTransaction(_ context.Context, from, to common.Address, value *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", walleterr.WithCause(walleterr.ErrBroadcastFailure, f.sendErr)
	}
	f.sent = append(f.sent, sentTx{from: from, to: to, value: value})
	return f.hash, nil
}

func (f *fakeProvider) SetAccounts(accounts ...common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = accounts
}

// Remove makes the provider unreachable.
func (f *fakeProvider) Remove() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone = true
}

func (f *fakeProvider) SetChainID(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = id
}

func (f *fakeProvider) Sent() []sentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentTx(nil), f.sent...)
}

// chainStub answers native balance and balanceOf queries.
type chainStub struct {
	mu      sync.Mutex
	native  *big.Int
	token   *big.Int
	fail    bool
	queried []common.Address
}

func (c *chainStub) GetNativeBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queried = append(c.queried, addr)
	if c.fail {
		return nil, errLocked
	}
	if c.native == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(c.native), nil
}

func (c *chainStub) Call(_ context.Context, _ common.Address, _ []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.token == nil {
		return nil, errLocked
	}
	return common.LeftPadBytes(c.token.Bytes(), 32), nil
}

func (c *chainStub) SetFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *chainStub) Queried() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Address(nil), c.queried...)
}

type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) Add() {
	c.n.Add(1)
}

func (c *atomicCounter) Load() int {
	return int(c.n.Load())
}
