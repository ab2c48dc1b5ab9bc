package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/cache"
	"github.com/mrz1836/uccwallet/internal/output"
	"github.com/mrz1836/uccwallet/internal/token"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

var (
	// ErrRefreshAndCached is returned when both --refresh and --cached flags are used together.
	ErrRefreshAndCached = errors.New("cannot use --refresh and --cached together")
	// ErrNoCachedData is returned when no cached data is available in cached-only mode.
	ErrNoCachedData = &walleterr.WalletError{
		Code:       "NO_CACHED_DATA",
		Message:    "no cached balance available",
		Suggestion: "Run 'uccwallet balance' without --cached to fetch from the chain",
		ExitCode:   walleterr.ExitNotFound,
	}
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// balanceCachedOnly shows cached data only, skipping network calls.
	balanceCachedOnly bool
	// balanceRefresh fails instead of falling back to the cache.
	balanceRefresh bool
	// balanceSkipTokens leaves token balances out.
	balanceSkipTokens bool
)

// balanceCmd shows the native and token balances of an address.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show native and token balances",
	Long: `Show the native UCC balance and registered token balances of an address.

Without an argument the remembered wallet is used. The address may be given
in hex or bech32 form.

Fresh balances are written to a local cache. When the chain cannot be
reached the cached balance is shown and marked stale, unless --refresh is
given.`,
	Example: `  uccwallet balance
  uccwallet balance ucc1wskntnrxxnq9x2f95wuyf0z9fezr3azwzj0gyc
  uccwallet balance --cached       # instant, cache only
  uccwallet balance --refresh      # fail rather than show cached data
  uccwallet balance -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

// TokenBalanceView is one token row of the balance output.
type TokenBalanceView struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
}

// BalanceView is the full response of the balance command.
type BalanceView struct {
	HexAddress  string             `json:"hexAddress"`
	BechAddress string             `json:"bechAddress"`
	Balance     string             `json:"balance"`
	Amount      string             `json:"amount"`
	Denom       string             `json:"denom"`
	Symbol      string             `json:"symbol"`
	Stale       bool               `json:"stale,omitempty"`
	CacheAge    string             `json:"cacheAge,omitempty"`
	Tokens      []TokenBalanceView `json:"tokens,omitempty"`
	Timestamp   string             `json:"timestamp"`
	Warning     string             `json:"warning,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	balanceCmd.GroupID = "wallet"
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().BoolVar(&balanceCachedOnly, "cached", false, "show cached data only, skip network")
	balanceCmd.Flags().BoolVar(&balanceRefresh, "refresh", false, "fail instead of falling back to cached data")
	balanceCmd.Flags().BoolVar(&balanceSkipTokens, "no-tokens", false, "skip token balances")
}

func runBalance(cmd *cobra.Command, args []string) error {
	if balanceCachedOnly && balanceRefresh {
		return walleterr.WithCause(errInvalidInput, ErrRefreshAndCached)
	}

	cc := commandContext(cmd)
	hexAddr, bech, err := cc.targetAddress(args)
	if err != nil {
		return err
	}

	view := &BalanceView{
		HexAddress:  hexAddr,
		BechAddress: bech,
		Denom:       cc.Config.Network.NativeDenom,
		Symbol:      cc.Config.Network.NativeSymbol,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	bc := cc.loadCache()
	if balanceCachedOnly {
		if err := fillFromCache(cc, view, bc); err != nil {
			return err
		}
		if !balanceSkipTokens {
			view.Tokens = tokenViews(cc.registry(nil).ListTokens())
		}
		return emitBalance(cc.formatterFor(cmd), view)
	}

	r, err := cc.reader()
	if err != nil {
		return err
	}
	defer closeReader(r)

	ctx, cancel := contextWithTimeout(cmd, callBudget(cc.Config, cc.Config.Polling.MaxAttempts))
	defer cancel()

	rec := cc.reconciler(r, bc)
	bal, fetchErr := rec.Refresh(ctx, bech)
	switch {
	case fetchErr == nil:
		cc.saveCache(bc)
		if view.Balance, err = formatNative(cc, bal.Amount); err != nil {
			return err
		}
		view.Amount = bal.Amount
	case balanceRefresh:
		return fetchErr
	default:
		cc.Logger.Error("fetching balance of %s: %v", bech, fetchErr)
		if err := fillFromCache(cc, view, bc); err != nil {
			return walleterr.WithCause(walleterr.ErrProviderUnavailable, fetchErr)
		}
		view.Warning = "chain unreachable, showing cached balance"
	}

	if !balanceSkipTokens {
		view.Tokens = refreshTokens(ctx, cc, cc.registry(r), hexAddr)
	}

	return emitBalance(cc.formatterFor(cmd), view)
}

// targetAddress resolves the command argument, or the remembered wallet.
func (c *CommandContext) targetAddress(args []string) (hexAddr, bech string, err error) {
	if len(args) == 0 {
		stored, err := c.addressBook().LoadWallet()
		if err != nil {
			return "", "", walleterr.WithSuggestion(err, "Pass an address or run 'uccwallet connect' first")
		}
		return stored.HexAddress, stored.BechAddress, nil
	}

	codec := c.codec()
	id, err := codec.Normalize(args[0])
	if err != nil {
		return "", "", err
	}
	return codec.Pair(id)
}

func fillFromCache(cc *CommandContext, view *BalanceView, bc *cache.BalanceCache) error {
	entry, ok, age := bc.Get(view.BechAddress, view.Denom)
	if !ok {
		return ErrNoCachedData
	}
	display, err := formatNative(cc, entry.Amount)
	if err != nil {
		return err
	}
	view.Balance = display
	view.Amount = entry.Amount
	view.CacheAge = age.Round(time.Second).String()
	view.Stale = age > cache.DefaultStaleness
	return nil
}

// refreshTokens updates token balances for owner. A failed refresh keeps
// the stored balances.
func refreshTokens(ctx context.Context, cc *CommandContext, reg *token.Registry, owner string) []TokenBalanceView {
	if err := reg.RefreshAllBalances(ctx, common.HexToAddress(owner)); err != nil {
		cc.Logger.Error("refreshing token balances: %v", err)
	}
	return tokenViews(reg.ListTokens())
}

func tokenViews(tokens []token.Info) []TokenBalanceView {
	views := make([]TokenBalanceView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, TokenBalanceView{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Name:     t.DisplayName(),
			Decimals: t.Decimals,
			Balance:  t.Balance,
		})
	}
	return views
}

func formatNative(cc *CommandContext, amount string) (string, error) {
	return balance.ToDisplayUnits(amount, cc.Config.Network.Decimals)
}

func emitBalance(f *output.Formatter, view *BalanceView) error {
	if view.Warning != "" {
		f.Warnf("%s", view.Warning)
	}
	return f.Emit(view, func(w io.Writer) error {
		out(w, "Address: %s\n", view.BechAddress)
		out(w, "         %s\n", view.HexAddress)
		outln(w)

		table := output.NewTable("ASSET", "BALANCE", "CONTRACT")
		table.AlignRight(1)
		native := view.Balance
		if view.Stale {
			native += " (stale)"
		}
		table.AddRow(view.Symbol, native, "")
		for _, t := range view.Tokens {
			table.AddRow(t.Symbol, t.Balance, t.Address)
		}
		if err := table.Render(w); err != nil {
			return err
		}
		if view.CacheAge != "" {
			out(w, "\nCached %s ago\n", view.CacheAge)
		}
		return nil
	})
}
