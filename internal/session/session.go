// Package session is the wallet façade. It owns the active account's two
// addresses, drives the provider connect flow, submits native transfers and
// reacts to provider account and network events.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/metrics"
	"github.com/mrz1836/uccwallet/internal/provider"
	"github.com/mrz1836/uccwallet/internal/token"
)

// State is the provider connection state.
type State int

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// WalletInfo holds both encodings of an account. Key material is only set
// on the offline generate and import paths.
type WalletInfo struct {
	HexAddress  string `json:"hexAddress"`
	BechAddress string `json:"bechAddress"`
	PrivateKey  string `json:"privateKey,omitempty"`
	Mnemonic    string `json:"mnemonic,omitempty"`
}

// ID returns the account identifier.
func (w *WalletInfo) ID() common.Address {
	return common.HexToAddress(w.HexAddress)
}

// Public returns a copy without key material.
func (w *WalletInfo) Public() *WalletInfo {
	return &WalletInfo{HexAddress: w.HexAddress, BechAddress: w.BechAddress}
}

// TransactionResult reports a send.
type TransactionResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Session coordinates the provider, balances and tokens for one account.
type Session struct {
	provider     provider.Provider
	network      provider.NetworkParams
	codec        address.Codec
	reconciler   *balance.Reconciler
	registry     *token.Registry
	watcher      *balance.Watcher
	events       *provider.EventSource
	book         *AddressBook
	logger       *config.Logger
	metrics      *metrics.Metrics
	pollAttempts int
	pollInterval time.Duration

	// opMu serializes state transitions.
	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	info      *WalletInfo
	scope     context.Context //nolint:containedctx // lifetime of the active account
	cancel    context.CancelFunc
	listening bool
	polls     sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithNetwork sets the network the provider is switched to on connect.
func WithNetwork(n provider.NetworkParams) Option {
	return func(s *Session) {
		s.network = n
	}
}

// WithCodec sets the address codec.
func WithCodec(c address.Codec) Option {
	return func(s *Session) {
		s.codec = c
	}
}

// WithReconciler sets the native balance reconciler.
func WithReconciler(r *balance.Reconciler) Option {
	return func(s *Session) {
		s.reconciler = r
	}
}

// WithRegistry sets the token registry.
func WithRegistry(r *token.Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// WithWatcher sets the background balance watcher.
func WithWatcher(w *balance.Watcher) Option {
	return func(s *Session) {
		s.watcher = w
	}
}

// WithEventSource sets the provider event source.
func WithEventSource(e *provider.EventSource) Option {
	return func(s *Session) {
		s.events = e
	}
}

// WithAddressBook remembers connected and imported addresses.
func WithAddressBook(b *AddressBook) Option {
	return func(s *Session) {
		s.book = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *config.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPolling sets the post-send poll parameters.
func WithPolling(maxAttempts int, interval time.Duration) Option {
	return func(s *Session) {
		s.pollAttempts = maxAttempts
		s.pollInterval = interval
	}
}

// New creates a disconnected session. p may be nil; Connect then fails
// with ErrProviderMissing.
func New(p provider.Provider, opts ...Option) *Session {
	cfg := config.Defaults()
	s := &Session{
		provider:     p,
		network:      provider.NetworkFromConfig(cfg.Network),
		codec:        address.NewCodec(cfg.Network.Bech32Prefix),
		logger:       config.NullLogger(),
		metrics:      metrics.Global,
		pollAttempts: cfg.Polling.MaxAttempts,
		pollInterval: cfg.Polling.Interval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns the connected account, if any.
func (s *Session) Info() (*WalletInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return nil, false
	}
	info := *s.info
	return &info, true
}

// Balance returns the latest native balance seen for the connected account.
func (s *Session) Balance() (balance.Balance, bool) {
	info, ok := s.Info()
	if !ok || s.reconciler == nil {
		return balance.Balance{}, false
	}
	return s.reconciler.Tracker().Get(info.BechAddress)
}

func (s *Session) infoFor(id common.Address) (*WalletInfo, error) {
	hexAddr, bechAddr, err := s.codec.Pair(id)
	if err != nil {
		return nil, err
	}
	return &WalletInfo{HexAddress: hexAddr, BechAddress: bechAddr}, nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// activate makes info the connected account and starts its background work.
func (s *Session) activate(ctx context.Context, info *WalletInfo) {
	scope, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.info = info
	s.state = Connected
	s.scope = scope
	s.cancel = cancel
	s.mu.Unlock()

	owner := info.ID()
	if s.registry != nil {
		s.registry.SetOwner(&owner)
	}

	switch {
	case s.watcher != nil:
		s.watcher.Start(scope, info.BechAddress)
	case s.reconciler != nil:
		if _, err := s.reconciler.Refresh(ctx, info.BechAddress); err != nil {
			s.logger.Debug("session: refreshing %s failed: %v", info.BechAddress, err)
		}
	}

	s.remember(info)
}

// deactivate stops the current account's background work and marks the
// session disconnected.
func (s *Session) deactivate() {
	s.teardown()

	s.mu.Lock()
	s.info = nil
	s.state = Disconnected
	s.mu.Unlock()
}

// teardown cancels every background task of the current account and waits
// for them, so nothing writes for that account once it returns. The state
// and the account stay as they are; activate swaps them in one step.
func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel, s.scope = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.polls.Wait()

	if s.registry != nil {
		s.registry.SetOwner(nil)
	}
}

func (s *Session) remember(info *WalletInfo) {
	if s.book == nil {
		return
	}
	if err := s.book.SaveWallet(info); err != nil {
		s.logger.Error("session: remembering wallet failed: %v", err)
	}
}
