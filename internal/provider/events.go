package provider

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/config"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// EventKind identifies a provider event.
type EventKind int

// Provider events.
const (
	AccountsChanged EventKind = iota + 1
	NetworkChanged
	ProviderRemoved
)

// RemovalThreshold is the number of consecutive polls that must find the
// provider unreachable before ProviderRemoved is emitted.
const RemovalThreshold = 3

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case NetworkChanged:
		return "networkChanged"
	case ProviderRemoved:
		return "providerRemoved"
	default:
		return "unknown"
	}
}

// Event is a change observed on the provider.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  uint64
}

// EventSource turns provider state into events by polling eth_accounts and
// eth_chainId and emitting on change. The first poll only records a baseline.
// A provider that stays unreachable for RemovalThreshold polls in a row is
// reported once as ProviderRemoved.
type EventSource struct {
	provider Provider
	interval time.Duration
	logger   *config.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventSource creates an event source. A nil logger discards output.
func NewEventSource(p Provider, interval time.Duration, logger *config.Logger) *EventSource {
	if interval <= 0 {
		interval = config.DefaultAccountPollInterval
	}
	if logger == nil {
		logger = config.NullLogger()
	}
	return &EventSource{provider: p, interval: interval, logger: logger}
}

// Start begins polling and returns the event channel. The channel is closed
// after Stop or when ctx ends. Calling Start on a running source restarts it.
func (s *EventSource) Start(ctx context.Context) <-chan Event {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 4)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, events, done)
	return events
}

// Stop ends polling and waits for the poller to exit. Safe to call repeatedly.
func (s *EventSource) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *EventSource) run(ctx context.Context, events chan<- Event, done chan struct{}) {
	defer close(done)
	defer close(events)

	var (
		accounts    []common.Address
		chainID     uint64
		haveBase    bool
		haveChainID bool
		misses      int
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		accs, err := s.provider.Accounts(ctx)
		switch {
		case errors.Is(err, walleterr.ErrProviderMissing):
			misses++
			s.logger.Debug("event source: provider unreachable (%d/%d): %v", misses, RemovalThreshold, err)
			if misses == RemovalThreshold {
				if !emit(ctx, events, Event{Kind: ProviderRemoved}) {
					return
				}
			}
			if !wait(ctx, ticker) {
				return
			}
			continue
		case err != nil:
			s.logger.Debug("event source: eth_accounts failed: %v", err)
		default:
			misses = 0
			if haveBase && !slices.Equal(accs, accounts) {
				if !emit(ctx, events, Event{Kind: AccountsChanged, Accounts: accs}) {
					return
				}
			}
			accounts = accs
			haveBase = true
		}

		if id, err := s.provider.ChainID(ctx); err != nil {
			s.logger.Debug("event source: eth_chainId failed: %v", err)
		} else {
			if haveChainID && id != chainID {
				if !emit(ctx, events, Event{Kind: NetworkChanged, ChainID: id}) {
					return
				}
			}
			chainID = id
			haveChainID = true
		}

		if !wait(ctx, ticker) {
			return
		}
	}
}

func wait(ctx context.Context, ticker *time.Ticker) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return true
	}
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
