package cli

import (
	"io"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// sendWait waits for the sender balance to update before exiting.
	sendWait bool
)

// sendCmd sends native coins through the wallet provider.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send <recipient> <amount>",
	Short: "Send UCC to an address",
	Long: `Send a native UCC transfer through the wallet provider.

The recipient may be a ucc1 bech32 or 0x hex address. The amount is in UCC,
not base units, and must be greater than zero. The provider signs and
broadcasts the transaction; the CLI never sees the key.

After submission the sender balance is polled until the chain reports it,
up to polling.max_attempts times.`,
	Example: `  uccwallet send ucc1wskntnrxxnq9x2f95wuyf0z9fezr3azwzj0gyc 1.5
  uccwallet send 0x742d35Cc6634C0532925a3b844Bc454e4438f44e 0.01 --wait=false
  uccwallet send ucc1... 2 -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

// SendView is the output of send.
type SendView struct {
	Success    bool   `json:"success"`
	TxHash     string `json:"txHash,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	Symbol     string `json:"symbol"`
	Balance    string `json:"balance,omitempty"`
	ExplorerTx string `json:"explorer,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	sendCmd.GroupID = "wallet"
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolVar(&sendWait, "wait", true, "wait for the sender balance to update")
}

func runSend(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)
	recipient, amount := args[0], args[1]

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

	result, err := parts.session.SendNative(cmd.Context(), recipient, amount)
	if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	f.Successf("Transaction submitted: %s", result.TxHash)

	view := &SendView{
		Success: result.Success,
		TxHash:  result.TxHash,
		From:    info.BechAddress,
		To:      recipient,
		Amount:  amount,
		Symbol:  cc.Config.Network.NativeSymbol,
	}
	if explorer := cc.Config.Network.BlockExplorer; explorer != "" {
		view.ExplorerTx = explorer + "/tx/" + result.TxHash
	}

	if sendWait {
		f.Infof("Waiting for balance update...")
		parts.session.WaitForPolls()
		if bal, ok := parts.session.Balance(); ok {
			if display, derr := formatNative(cc, bal.Amount); derr == nil {
				view.Balance = display
			}
		}
	}

	return f.Emit(view, func(w io.Writer) error {
		out(w, "Tx hash: %s\n", view.TxHash)
		out(w, "From:    %s\n", view.From)
		out(w, "To:      %s\n", view.To)
		out(w, "Amount:  %s %s\n", view.Amount, view.Symbol)
		if view.Balance != "" {
			out(w, "Balance: %s %s\n", view.Balance, view.Symbol)
		}
		if view.ExplorerTx != "" {
			out(w, "Explorer: %s\n", view.ExplorerTx)
		}
		return nil
	})
}
