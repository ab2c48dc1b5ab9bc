package cli

import (
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/output"
	"github.com/mrz1836/uccwallet/internal/token"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// tokenName overrides the on-chain token name.
	tokenName string
)

// tokenCmd is the parent command for the custom token list.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage custom ERC-20 tokens",
	Long: `Manage the list of ERC-20 tokens tracked for the remembered wallet.

Token name, symbol and decimals are read from the contract. Contracts that
return fixed-size strings or only expose upper-case accessors are handled;
missing fields fall back to "Unknown Token", "???" and 18 decimals.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokenAddCmd = &cobra.Command{
	Use:   "add <contract>",
	Short: "Track a token contract",
	Long: `Add a token contract to the list. The address may be hex (with or without
0x) or bech32. Adding a contract that is already tracked changes nothing.`,
	Example: `  uccwallet token add 0x5FbDB2315678afecb367f032d93F642f64180aa3
  uccwallet token add 0x5FbDB2315678afecb367f032d93F642f64180aa3 --name "My Token"`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokenRemoveCmd = &cobra.Command{
	Use:   "remove <contract>",
	Short: "Stop tracking a token contract",
	Long:  `Remove a token contract from the list. Unknown contracts are ignored.`,
	Example: `  uccwallet token remove 0x5FbDB2315678afecb367f032d93F642f64180aa3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTokenRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked tokens",
	Long:  `List tracked tokens in the order they were added, with their last known balances.`,
	Example: `  uccwallet token list
  uccwallet token list -o json`,
	Args: cobra.NoArgs,
	RunE: runTokenList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh [contract]",
	Short: "Refresh token balances",
	Long: `Query the balance of every tracked token, or of one token, for the
remembered wallet. A balance that cannot be read is recorded as 0.`,
	Example: `  uccwallet token refresh
  uccwallet token refresh 0x5FbDB2315678afecb367f032d93F642f64180aa3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenRefresh,
}

// TokenRemoveView is the output of token remove.
type TokenRemoveView struct {
	Address string `json:"address"`
	Removed bool   `json:"removed"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	tokenCmd.GroupID = "chain"
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenAddCmd, tokenRemoveCmd, tokenListCmd, tokenRefreshCmd)

	tokenAddCmd.Flags().StringVar(&tokenName, "name", "", "display name overriding the contract name")
}

// ownerID returns the remembered wallet as a token balance owner.
func (c *CommandContext) ownerID() (common.Address, bool) {
	stored, err := c.addressBook().LoadWallet()
	if err != nil {
		return common.Address{}, false
	}
	return common.HexToAddress(stored.HexAddress), true
}

func runTokenAdd(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	r, err := cc.reader()
	if err != nil {
		return err
	}
	defer closeReader(r)

	reg := cc.registry(r)
	if owner, ok := cc.ownerID(); ok {
		reg.SetOwner(&owner)
	}

	ctx, cancel := contextWithTimeout(cmd, callBudget(cc.Config, connectCalls))
	defer cancel()

	info, err := reg.AddToken(ctx, args[0], tokenName)
	if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	f.Successf("Tracking %s (%s)", info.DisplayName(), info.Symbol)
	return f.Emit(info, func(w io.Writer) error {
		writeTokenTable(w, []token.Info{*info})
		return nil
	})
}

func runTokenRemove(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	removed, err := cc.registry(nil).RemoveToken(args[0])
	if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	if !removed {
		f.Infof("%s is not tracked", args[0])
	} else {
		f.Successf("Removed %s", args[0])
	}
	return f.Emit(&TokenRemoveView{Address: args[0], Removed: removed}, func(io.Writer) error {
		return nil
	})
}

func runTokenList(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	tokens := cc.registry(nil).ListTokens()

	f := cc.formatterFor(cmd)
	return f.Emit(tokens, func(w io.Writer) error {
		if len(tokens) == 0 {
			outln(w, "No tokens tracked. Add one with 'uccwallet token add <contract>'.")
			return nil
		}
		writeTokenTable(w, tokens)
		return nil
	})
}

func runTokenRefresh(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	owner, ok := cc.ownerID()
	if !ok {
		return walleterr.WithSuggestion(walleterr.ErrWalletNotFound, "Run 'uccwallet connect' first")
	}

	r, err := cc.reader()
	if err != nil {
		return err
	}
	defer closeReader(r)

	ctx, cancel := contextWithTimeout(cmd, callBudget(cc.Config, connectCalls))
	defer cancel()

	reg := cc.registry(r)
	if len(args) == 1 {
		err = reg.RefreshBalance(ctx, args[0], owner)
	} else {
		err = reg.RefreshAllBalances(ctx, owner)
	}
	if err != nil {
		return err
	}

	tokens := reg.ListTokens()
	return cc.formatterFor(cmd).Emit(tokens, func(w io.Writer) error {
		writeTokenTable(w, tokens)
		return nil
	})
}

func writeTokenTable(w io.Writer, tokens []token.Info) {
	table := output.NewTable("SYMBOL", "NAME", "BALANCE", "DECIMALS", "CONTRACT")
	table.AlignRight(2)
	table.AlignRight(3)
	for _, t := range tokens {
		table.AddRow(t.Symbol, t.DisplayName(), t.Balance, strconv.Itoa(t.Decimals), t.Address)
	}
	_ = table.Render(w)
}
