package session

import (
	"context"

	"github.com/mrz1836/uccwallet/internal/balance"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// SendNative transfers amount (display units) to recipient, given in either
// address encoding. On submission a background poll of the sender's own
// balance starts and the result returns without waiting for it.
func (s *Session) SendNative(ctx context.Context, recipient, amount string) (*TransactionResult, error) {
	info, ok := s.Info()
	if !ok {
		return nil, walleterr.WithSuggestion(walleterr.ErrNoAccounts, "Connect a wallet before sending")
	}

	to, err := s.codec.Normalize(recipient)
	if err != nil {
		return nil, err
	}

	value, err := balance.ToBaseUnits(amount, s.network.NativeCurrency.Decimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "must be greater than zero",
		})
	}

	hash, err := s.provider.SendTransaction(ctx, info.ID(), to, value)
	s.metrics.RecordWalletOp(err)
	if err != nil {
		return &TransactionResult{Error: err.Error()}, err
	}

	s.logger.Debug("session: sent %s %s to %s: %s", amount, s.network.NativeCurrency.Symbol, recipient, hash)
	s.startPoll(info.BechAddress)
	return &TransactionResult{Success: true, TxHash: hash}, nil
}

// startPoll waits for the sender's balance in the background. The poll is
// bound to the account's scope and ends on disconnect or account change.
// The watcher's periodic refresh is paused while it runs.
func (s *Session) startPoll(addr string) {
	if s.reconciler == nil {
		return
	}

	s.mu.Lock()
	scope := s.scope
	if scope == nil || s.info == nil || s.info.BechAddress != addr {
		s.mu.Unlock()
		return
	}
	s.polls.Add(1)
	s.mu.Unlock()

	resume := func() {}
	if s.watcher != nil {
		resume = s.watcher.Pause()
	}

	states := s.reconciler.StartPoll(scope, addr, s.pollAttempts, s.pollInterval)
	go func() {
		defer s.polls.Done()
		defer resume()
		for st := range states {
			s.logger.Debug("session: poll of %s %s after %d attempts", addr, st.State, st.Attempts)
		}
	}()
}

// WaitForPolls blocks until every pending post-send poll has finished.
func (s *Session) WaitForPolls() {
	s.polls.Wait()
}
