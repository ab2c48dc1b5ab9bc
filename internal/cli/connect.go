package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/session"
)

// connectCmd connects to the wallet provider.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the wallet provider",
	Long: `Ask the wallet provider for account access, switch it to the Universe
chain (registering the chain first if the provider does not know it) and
remember the first account.

The provider endpoint is network.provider_rpc in the configuration, or the
UCC_PROVIDER_RPC environment variable.`,
	Example: `  uccwallet connect
  UCC_PROVIDER_RPC=http://127.0.0.1:8545 uccwallet connect -o json`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

// ConnectView is the output of connect.
type ConnectView struct {
	HexAddress  string `json:"hexAddress"`
	BechAddress string `json:"bechAddress"`
	Network     string `json:"network"`
	ChainID     string `json:"chainId"`
	Balance     string `json:"balance,omitempty"`
	Symbol      string `json:"symbol"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	connectCmd.GroupID = "wallet"
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)

	parts, err := cc.openSession(false)
	if err != nil {
		return err
	}
	defer cc.saveCache(parts.cache)
	defer parts.close()

	ctx, cancel := contextWithTimeout(cmd, callBudget(cc.Config, connectCalls))
	defer cancel()

	info, err := parts.session.Connect(ctx)
	if err != nil {
		return err
	}

	view := connectView(cc, parts.session, info)
	f := cc.formatterFor(cmd)
	f.Successf("Connected to %s", cc.Config.Network.ChainName)
	return f.Emit(view, func(w io.Writer) error {
		out(w, "Hex:     %s\n", view.HexAddress)
		out(w, "Bech32:  %s\n", view.BechAddress)
		out(w, "Network: %s (%s)\n", view.Network, view.ChainID)
		if view.Balance != "" {
			out(w, "Balance: %s %s\n", view.Balance, view.Symbol)
		}
		return nil
	})
}

func connectView(cc *CommandContext, s *session.Session, info *session.WalletInfo) *ConnectView {
	view := &ConnectView{
		HexAddress:  info.HexAddress,
		BechAddress: info.BechAddress,
		Network:     cc.Config.Network.ChainName,
		ChainID:     cc.Config.Network.ChainID,
		Symbol:      cc.Config.Network.NativeSymbol,
	}
	if bal, ok := s.Balance(); ok {
		if display, err := formatNative(cc, bal.Amount); err == nil {
			view.Balance = display
		}
	}
	return view
}
