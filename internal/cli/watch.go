package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/session"
)

// watchCmd follows the connected account until interrupted.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the connected account and its balance",
	Long: `Connect to the wallet provider and keep the account balance fresh until
interrupted.

The balance is refreshed every polling.refresh_interval and whenever a new
block is seen. Account switches and network changes in the provider are
followed; when the provider revokes all accounts the watch ends.`,
	Example: `  uccwallet watch
  uccwallet watch -o json   # one JSON object per update`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// WatchUpdate is one line of watch output.
type WatchUpdate struct {
	Time        string `json:"time"`
	Event       string `json:"event"`
	BechAddress string `json:"bechAddress,omitempty"`
	Balance     string `json:"balance,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	watchCmd.GroupID = "wallet"
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchSession(ctx, cmd)
}

// watchSession runs until ctx ends or the session disconnects.
func watchSession(ctx context.Context, cmd *cobra.Command) error {
	cc := commandContext(cmd)

	parts, err := cc.openSession(true)
	if err != nil {
		return err
	}
	defer cc.saveCache(parts.cache)
	defer parts.close()

	f := cc.formatterFor(cmd)
	updates := make(chan WatchUpdate, 16)
	emit := func(u WatchUpdate) {
		u.Time = time.Now().UTC().Format(time.RFC3339)
		select {
		case updates <- u:
		default:
			cc.Logger.Debug("watch: dropping update %s", u.Event)
		}
	}

	parts.reconciler.Tracker().SetSink(func(addr string, bal balance.Balance) {
		parts.cache.Put(addr, bal)
		display, err := formatNative(cc, bal.Amount)
		if err != nil {
			return
		}
		emit(WatchUpdate{Event: "balance", BechAddress: addr, Balance: display, Symbol: cc.Config.Network.NativeSymbol})
	})

	connectCtx, cancel := context.WithTimeout(ctx, callBudget(cc.Config, connectCalls))
	info, err := parts.session.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}

	write := func(u WatchUpdate) error {
		return f.Emit(u, func(w io.Writer) error {
			line := u.Time + "  " + u.Event
			if u.BechAddress != "" {
				line += "  " + u.BechAddress
			}
			if u.Balance != "" {
				line += "  " + u.Balance + " " + u.Symbol
			}
			outln(w, line)
			return nil
		})
	}
	if err := write(WatchUpdate{Time: time.Now().UTC().Format(time.RFC3339), Event: "connected", BechAddress: info.BechAddress}); err != nil {
		return err
	}

	interval := cc.Config.Polling.AccountPollInterval
	if interval <= 0 {
		interval = config.DefaultAccountPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := info.BechAddress
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if err := write(u); err != nil {
				return err
			}
		case <-ticker.C:
			if parts.session.State() == session.Disconnected {
				return write(WatchUpdate{Time: time.Now().UTC().Format(time.RFC3339), Event: "disconnected"})
			}
			if now, ok := parts.session.Info(); ok && now.BechAddress != current {
				current = now.BechAddress
				if err := write(WatchUpdate{Time: time.Now().UTC().Format(time.RFC3339), Event: "accountChanged", BechAddress: current}); err != nil {
					return err
				}
			}
		}
	}
}
