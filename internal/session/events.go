package session

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/provider"
)

// listen starts the provider event subscription once per connection.
func (s *Session) listen() {
	if s.events == nil {
		return
	}

	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return
	}
	s.listening = true
	s.mu.Unlock()

	events := s.events.Start(context.Background())
	go s.dispatch(events)
}

func (s *Session) dispatch(events <-chan provider.Event) {
	for ev := range events {
		var err error
		switch ev.Kind {
		case provider.AccountsChanged:
			err = s.HandleAccountsChanged(context.Background(), ev.Accounts)
		case provider.NetworkChanged:
			err = s.HandleNetworkChanged(context.Background())
		case provider.ProviderRemoved:
			s.HandleProviderRemoved()
		}
		if err != nil {
			s.logger.Error("session: handling %s failed: %v", ev.Kind, err)
		}
	}
}

// HandleAccountsChanged reacts to a new provider account list. An empty list
// disconnects the session. Otherwise the first account becomes active and
// its balances are refreshed. Events for a disconnected session are ignored.
func (s *Session) HandleAccountsChanged(ctx context.Context, accounts []common.Address) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() != Connected {
		return nil
	}
	if len(accounts) == 0 {
		s.logger.Debug("session: provider exposed no accounts, disconnecting")
		s.disconnect()
		return nil
	}

	info, err := s.infoFor(accounts[0])
	if err != nil {
		return err
	}

	s.teardown()
	s.activate(ctx, info)
	return s.refreshTokens(ctx, info)
}

// HandleProviderRemoved disconnects a session whose provider went away.
func (s *Session) HandleProviderRemoved() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == Disconnected {
		return
	}
	s.logger.Error("session: wallet provider is gone, disconnecting")
	s.disconnect()
}

// HandleNetworkChanged reloads tokens from the store, refreshes every
// balance and restarts the watcher.
func (s *Session) HandleNetworkChanged(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	info, ok := s.Info()
	if !ok {
		return nil
	}

	if s.registry != nil {
		s.registry.Reload()
	}

	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()

	switch {
	case s.watcher != nil:
		s.watcher.Start(scope, info.BechAddress)
	case s.reconciler != nil:
		if _, err := s.reconciler.Refresh(ctx, info.BechAddress); err != nil {
			s.logger.Debug("session: refreshing %s failed: %v", info.BechAddress, err)
		}
	}
	return s.refreshTokens(ctx, info)
}

func (s *Session) refreshTokens(ctx context.Context, info *WalletInfo) error {
	if s.registry == nil {
		return nil
	}
	return s.registry.RefreshAllBalances(ctx, info.ID())
}
