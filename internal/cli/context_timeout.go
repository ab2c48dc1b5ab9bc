package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/config"
)

// connectCalls is the RPC round trips a connect may take: request accounts,
// switch network, add network, first balance.
const connectCalls = 4

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}

// callBudget is the time allowed for n sequential chain or provider calls.
func callBudget(cfg *config.Config, n int) time.Duration {
	per := cfg.Polling.CallTimeout
	if per <= 0 {
		per = config.DefaultCallTimeout
	}
	return per * time.Duration(max(n, 1))
}
