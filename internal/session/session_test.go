package session

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/kvstore"
	"github.com/mrz1836/uccwallet/internal/metrics"
	"github.com/mrz1836/uccwallet/internal/provider"
	"github.com/mrz1836/uccwallet/internal/token"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

func newTestSession(p provider.Provider, stub *chainStub, opts ...Option) *Session {
	m := &metrics.Metrics{}
	base := []Option{
		WithMetrics(m),
		WithReconciler(balance.NewReconciler(stub, balance.WithMetrics(m))),
		WithPolling(3, 0),
	}
	return New(p, append(base, opts...)...)
}

func TestStateString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "unknown", State(7).String())
}

func TestConnect(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA, accountB)
	stub := &chainStub{native: big.NewInt(5)}
	book := NewAddressBook(kvstore.NewMemoryStore())
	s := newTestSession(p, stub, WithAddressBook(book))
	t.Cleanup(s.Disconnect)

	info, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x742d35cc6634c0532925a3b844bc454e4438f44e", info.HexAddress)
	assert.Equal(t, bechA, info.BechAddress)
	assert.Equal(t, Connected, s.State())

	require.Len(t, p.switched, 1)
	assert.Equal(t, "0x2328", p.switched[0].ChainID)
	assert.Empty(t, p.added)

	bal, ok := s.Balance()
	require.True(t, ok)
	assert.Equal(t, "5", bal.Amount)

	stored, err := book.LoadWallet()
	require.NoError(t, err)
	assert.Equal(t, bechA, stored.BechAddress)
}

func TestConnectRegistersUnknownNetwork(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	p.switchErr = walleterr.WithCause(walleterr.ErrUnrecognizedNetwork, errors.New("Unrecognized chain ID"))
	s := newTestSession(p, &chainStub{})
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.Len(t, p.added, 1)
	assert.Equal(t, "Universe Chain", p.added[0].ChainName)
	assert.Equal(t, 18, p.added[0].NativeCurrency.Decimals)
}

func TestConnectErrors(t *testing.T) {
	t.Parallel()

	otherSwitch := errors.New("user rejected the request")
	tests := []struct {
		name    string
		setup   func(p *fakeProvider)
		wantErr error
	}{
		{
			name:    "no accounts",
			setup:   func(p *fakeProvider) { p.accounts = nil },
			wantErr: walleterr.ErrNoAccounts,
		},
		{
			name:    "request refused",
			setup:   func(p *fakeProvider) { p.requestErr = errLocked },
			wantErr: errLocked,
		},
		{
			name:    "switch refused",
			setup:   func(p *fakeProvider) { p.switchErr = otherSwitch },
			wantErr: otherSwitch,
		},
		{
			name: "registration refused",
			setup: func(p *fakeProvider) {
				p.switchErr = walleterr.ErrUnrecognizedNetwork
				p.addErr = errLocked
			},
			wantErr: errLocked,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newFakeProvider(accountA)
			tc.setup(p)
			s := newTestSession(p, &chainStub{})

			info, err := s.Connect(context.Background())
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, info)
			assert.Equal(t, Disconnected, s.State())
			_, ok := s.Info()
			assert.False(t, ok)
		})
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Connect(context.Background())
	require.ErrorIs(t, err, walleterr.ErrProviderMissing)
	assert.Equal(t, walleterr.ExitProvider, walleterr.ExitCode(err))
}

func TestSendNative(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	stub := &chainStub{native: big.NewInt(1)}
	s := newTestSession(p, stub)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	res, err := s.SendNative(context.Background(), bechB, "1.5")
	require.NoError(t, err)
	assert.Equal(t, &TransactionResult{Success: true, TxHash: "0xabc123"}, res)

	sent := p.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, accountA, sent[0].from)
	assert.Equal(t, accountB, sent[0].to)
	assert.Equal(t, "1500000000000000000", sent[0].value.String())

	// The poll targets the sender, never the recipient.
	s.WaitForPolls()
	queried := stub.Queried()
	require.Len(t, queried, 2)
	assert.Equal(t, accountA, queried[1])
}

func TestSendNativeHexRecipient(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	s := newTestSession(p, &chainStub{})
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	_, err = s.SendNative(context.Background(), accountB.Hex(), "0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "1", p.Sent()[0].value.String())
}

func TestSendNativeRejectsInput(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	s := newTestSession(p, &chainStub{})
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	tests := []struct {
		recipient string
		amount    string
		wantErr   error
	}{
		{"cosmos1wskntnrxxnq9x2f95wuyf0z9fezr3azwfssuru", "1", walleterr.ErrInvalidRecipient},
		{"0x1234", "1", walleterr.ErrInvalidRecipient},
		{"", "1", walleterr.ErrInvalidRecipient},
		{bechB, "0", walleterr.ErrInvalidAmount},
		{bechB, "-1", walleterr.ErrInvalidAmount},
		{bechB, "abc", walleterr.ErrInvalidAmount},
		{bechB, "", walleterr.ErrInvalidAmount},
	}
	for _, tc := range tests {
		res, err := s.SendNative(context.Background(), tc.recipient, tc.amount)
		require.ErrorIs(t, err, tc.wantErr, "%s %s", tc.recipient, tc.amount)
		assert.Nil(t, res)
	}
	assert.Empty(t, p.Sent())
}

func TestSendNativeBroadcastFailure(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	p.sendErr = errors.New("insufficient funds for gas * price + value")
	stub := &chainStub{}
	s := newTestSession(p, stub)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	before := len(stub.Queried())

	res, err := s.SendNative(context.Background(), bechB, "1")
	require.ErrorIs(t, err, walleterr.ErrBroadcastFailure)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient funds for gas * price + value")

	s.WaitForPolls()
	assert.Len(t, stub.Queried(), before)
}

func TestSendNativeRequiresConnection(t *testing.T) {
	t.Parallel()

	_, err := newTestSession(newFakeProvider(accountA), &chainStub{}).SendNative(context.Background(), bechB, "1")
	require.ErrorIs(t, err, walleterr.ErrNoAccounts)
}

func TestSendNativePollExhaustsSilently(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	stub := &chainStub{}
	m := &metrics.Metrics{}
	s := New(p,
		WithMetrics(m),
		WithReconciler(balance.NewReconciler(stub, balance.WithMetrics(m))),
		WithPolling(3, 0),
	)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	stub.SetFail(true)

	_, err = s.SendNative(context.Background(), bechB, "2")
	require.NoError(t, err)

	s.WaitForPolls()
	assert.Equal(t, int64(1), m.Snapshot().PollsExhausted)
	assert.Equal(t, Connected, s.State())
}

func TestSendNativePausesWatcherDuringPoll(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	stub := &chainStub{native: big.NewInt(1)}
	m := &metrics.Metrics{}
	rec := balance.NewReconciler(stub, balance.WithMetrics(m))
	w := balance.NewWatcher(rec, nil, 5*time.Millisecond, 0)
	s := New(p,
		WithMetrics(m),
		WithReconciler(rec),
		WithWatcher(w),
		WithPolling(5, 5*time.Millisecond),
	)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, w.Running())
	assert.False(t, w.Paused())

	stub.SetFail(true)
	_, err = s.SendNative(context.Background(), bechB, "1")
	require.NoError(t, err)
	assert.True(t, w.Paused())

	s.WaitForPolls()
	assert.Equal(t, int64(1), m.Snapshot().PollsExhausted)
	assert.False(t, w.Paused())
	assert.True(t, w.Running())
}

func TestHandleAccountsChangedSwitchesAccount(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	stub := &chainStub{native: big.NewInt(9), token: big.NewInt(2_500_000_000_000_000_000)}
	registry := token.NewRegistry(store, nil, stub)
	p := newFakeProvider(accountA)
	s := newTestSession(p, stub, WithRegistry(registry))
	t.Cleanup(s.Disconnect)

	require.NoError(t, store.Set(token.StoreKey, `[{"address":"0x1111111111111111111111111111111111111111","symbol":"TKN","name":"Token","decimals":18,"balance":"0"}]`))

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.HandleAccountsChanged(context.Background(), []common.Address{accountB}))

	info, ok := s.Info()
	require.True(t, ok)
	assert.Equal(t, bechB, info.BechAddress)
	assert.Equal(t, Connected, s.State())

	bal, ok := s.Balance()
	require.True(t, ok)
	assert.Equal(t, "9", bal.Amount)

	tokens := registry.ListTokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, "2.5", tokens[0].Balance)
}

func TestHandleAccountsChangedStaysConnected(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	stub := &chainStub{native: big.NewInt(1)}
	m := &metrics.Metrics{}
	rec := balance.NewReconciler(stub, balance.WithMetrics(m))
	s := New(p, WithMetrics(m), WithReconciler(rec), WithPolling(1000, 5*time.Millisecond))
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	// A pending poll makes the switch wait on the old account's work.
	stub.SetFail(true)
	_, err = s.SendNative(context.Background(), bechB, "1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(stub.Queried()) >= 3 }, 2*time.Second, time.Millisecond)

	var sawDisconnected, sawNoAccount atomic.Bool
	stop := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if s.State() != Connected {
				sawDisconnected.Store(true)
			}
			if _, ok := s.Info(); !ok {
				sawNoAccount.Store(true)
			}
		}
	}()

	require.NoError(t, s.HandleAccountsChanged(context.Background(), []common.Address{accountB}))
	close(stop)
	<-sampled

	assert.False(t, sawDisconnected.Load(), "state left Connected during an account switch")
	assert.False(t, sawNoAccount.Load(), "account was cleared during an account switch")
	assert.Equal(t, int64(1), m.Snapshot().PollsCancelled)

	info, ok := s.Info()
	require.True(t, ok)
	assert.Equal(t, bechB, info.BechAddress)
}

func TestHandleAccountsChangedIgnoredWhenDisconnected(t *testing.T) {
	t.Parallel()

	s := newTestSession(newFakeProvider(accountA), &chainStub{})
	require.NoError(t, s.HandleAccountsChanged(context.Background(), []common.Address{accountB}))
	assert.Equal(t, Disconnected, s.State())
	require.NoError(t, s.HandleNetworkChanged(context.Background()))
}

func TestHandleNetworkChangedReloadsTokens(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	stub := &chainStub{token: big.NewInt(1_000_000)}
	registry := token.NewRegistry(store, nil, stub)
	s := newTestSession(newFakeProvider(accountA), stub, WithRegistry(registry))
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, registry.ListTokens())

	// Written behind the registry's back; only a reload sees it.
	require.NoError(t, store.Set(token.StoreKey, `[{"address":"0x2222222222222222222222222222222222222222","symbol":"USD","name":"Dollar","decimals":6,"balance":"0"}]`))
	assert.Empty(t, registry.ListTokens())

	require.NoError(t, s.HandleNetworkChanged(context.Background()))

	tokens := registry.ListTokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, "1", tokens[0].Balance)
}

func TestAccountsClearedDisconnectsAndStopsPolls(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA, accountB)
	stub := &chainStub{native: big.NewInt(1)}
	m := &metrics.Metrics{}

	var writes atomicCounter
	tracker := balance.NewTracker(func(string, balance.Balance) { writes.Add() })
	rec := balance.NewReconciler(stub, balance.WithMetrics(m), balance.WithTracker(tracker))

	s := New(p,
		WithMetrics(m),
		WithReconciler(rec),
		WithPolling(1000, 5*time.Millisecond),
		WithEventSource(provider.NewEventSource(p, 5*time.Millisecond, nil)),
	)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writes.Load())

	// Keep a poll loop pending.
	stub.SetFail(true)
	_, err = s.SendNative(context.Background(), bechB, "1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(stub.Queried()) >= 3 }, 2*time.Second, time.Millisecond)

	p.SetAccounts()
	require.Eventually(t, func() bool { return s.State() == Disconnected }, 2*time.Second, time.Millisecond)

	_, ok := s.Info()
	assert.False(t, ok)

	// Any further attempt would now succeed and write.
	stub.SetFail(false)
	s.WaitForPolls()
	queried := len(stub.Queried())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, writes.Load())
	assert.Len(t, stub.Queried(), queried)
	assert.Equal(t, int64(1), m.Snapshot().PollsCancelled)
}

func TestProviderRemovedDisconnects(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(accountA)
	stub := &chainStub{native: big.NewInt(1)}
	m := &metrics.Metrics{}
	s := New(p,
		WithMetrics(m),
		WithReconciler(balance.NewReconciler(stub, balance.WithMetrics(m))),
		WithPolling(1000, 5*time.Millisecond),
		WithEventSource(provider.NewEventSource(p, 2*time.Millisecond, nil)),
	)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	stub.SetFail(true)
	_, err = s.SendNative(context.Background(), bechB, "1")
	require.NoError(t, err)

	p.Remove()
	require.Eventually(t, func() bool { return s.State() == Disconnected }, 2*time.Second, time.Millisecond)

	_, ok := s.Info()
	assert.False(t, ok)
	s.WaitForPolls()
	assert.Equal(t, int64(1), m.Snapshot().PollsCancelled)

	_, err = s.SendNative(context.Background(), bechB, "1")
	require.ErrorIs(t, err, walleterr.ErrNoAccounts)
}

func TestHandleProviderRemovedIgnoredWhenDisconnected(t *testing.T) {
	t.Parallel()

	s := newTestSession(newFakeProvider(accountA), &chainStub{})
	s.HandleProviderRemoved()
	assert.Equal(t, Disconnected, s.State())
}

func TestEventsDriveNetworkReload(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	stub := &chainStub{token: big.NewInt(3)}
	registry := token.NewRegistry(store, nil, stub)
	p := newFakeProvider(accountA)
	s := newTestSession(p, stub,
		WithRegistry(registry),
		WithEventSource(provider.NewEventSource(p, 5*time.Millisecond, nil)),
	)
	t.Cleanup(s.Disconnect)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Set(token.StoreKey, `[{"address":"0x3333333333333333333333333333333333333333","symbol":"T","name":"T","decimals":0,"balance":"0"}]`))

	// Let the event source take its baseline before the switch.
	time.Sleep(30 * time.Millisecond)
	p.SetChainID(1)

	require.Eventually(t, func() bool {
		tokens := registry.ListTokens()
		return len(tokens) == 1 && tokens[0].Balance == "3"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSession(newFakeProvider(accountA), &chainStub{})
	s.Disconnect()

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, Disconnected, s.State())
}
