package session

import (
	"context"
	"errors"

	"github.com/mrz1836/uccwallet/internal/wallet"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Connect requests account access, takes the first account and switches
// the provider to the configured network, registering it first when the
// provider does not know it. A connected session is reconnected.
func (s *Session) Connect(ctx context.Context) (*WalletInfo, error) {
	if s.provider == nil {
		return nil, walleterr.ErrProviderMissing
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.deactivate()
	s.setState(Connecting)

	info, err := s.connect(ctx)
	s.metrics.RecordWalletOp(err)
	if err != nil {
		s.setState(Disconnected)
		return nil, err
	}

	s.activate(ctx, info)
	s.listen()
	s.logger.Debug("session: connected %s", info.BechAddress)
	return info.Public(), nil
}

func (s *Session) connect(ctx context.Context) (*WalletInfo, error) {
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, walleterr.ErrNoAccounts
	}

	info, err := s.infoFor(accounts[0])
	if err != nil {
		return nil, err
	}
	if err := s.ensureNetwork(ctx); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Session) ensureNetwork(ctx context.Context) error {
	err := s.provider.SwitchNetwork(ctx, s.network)
	if err == nil {
		return nil
	}
	if !errors.Is(err, walleterr.ErrUnrecognizedNetwork) {
		return err
	}

	s.logger.Debug("session: registering network %s (%s)", s.network.ChainName, s.network.ChainID)
	if err := s.provider.AddNetwork(ctx, s.network); err != nil {
		return walleterr.Wrap(err, "registering network %s", s.network.ChainName)
	}
	return nil
}

// Disconnect tears down the event subscription, the watcher and pending
// polls. It is safe to call on a disconnected session.
func (s *Session) Disconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnect()
}

func (s *Session) disconnect() {
	s.mu.Lock()
	listening := s.listening
	s.listening = false
	s.mu.Unlock()

	if listening {
		s.events.Stop()
	}
	s.deactivate()
}

// Generate creates a new 24-word wallet offline.
func (s *Session) Generate() (*WalletInfo, error) {
	mnemonic, acct, err := wallet.Generate()
	s.metrics.RecordWalletOp(err)
	if err != nil {
		return nil, err
	}
	return s.offline(acct, mnemonic)
}

// ImportFromMnemonic derives the default account of phrase offline.
func (s *Session) ImportFromMnemonic(phrase string) (*WalletInfo, error) {
	acct, err := wallet.FromMnemonic(phrase, "")
	s.metrics.RecordWalletOp(err)
	if err != nil {
		return nil, err
	}
	return s.offline(acct, wallet.NormalizeMnemonicInput(phrase))
}

// ImportFromPrivateKey loads a hex private key offline.
func (s *Session) ImportFromPrivateKey(key string) (*WalletInfo, error) {
	acct, err := wallet.FromPrivateKey(key)
	s.metrics.RecordWalletOp(err)
	if err != nil {
		return nil, err
	}
	return s.offline(acct, "")
}

func (s *Session) offline(acct *wallet.Account, mnemonic string) (*WalletInfo, error) {
	info, err := s.infoFor(acct.Address)
	if err != nil {
		return nil, err
	}
	info.PrivateKey = acct.PrivateKeyHex()
	info.Mnemonic = mnemonic

	s.remember(info)
	return info, nil
}
