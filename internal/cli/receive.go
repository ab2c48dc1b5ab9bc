package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// receiveHex encodes the hex form in the QR code instead of bech32.
	receiveHex bool
	// receiveNoQR skips the QR code.
	receiveNoQR bool
)

// receiveCmd shows the receiving address of the remembered wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var receiveCmd = &cobra.Command{
	Use:   "receive [address]",
	Short: "Show a receiving address with a QR code",
	Long: `Display the receiving address of the remembered wallet, or of the given
address, in both encodings together with a QR code.

The QR code carries the bech32 form unless --hex is given. On a terminal it
is drawn with half blocks; otherwise a plain text rendering is printed.`,
	Example: `  uccwallet receive
  uccwallet receive --hex
  uccwallet receive --no-qr -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReceive,
}

// ReceiveView is the output of receive.
type ReceiveView struct {
	HexAddress  string `json:"hexAddress"`
	BechAddress string `json:"bechAddress"`
	QRData      string `json:"qrData"`
	Explorer    string `json:"explorer,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	receiveCmd.GroupID = "wallet"
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().BoolVar(&receiveHex, "hex", false, "encode the hex address in the QR code")
	receiveCmd.Flags().BoolVar(&receiveNoQR, "no-qr", false, "do not print a QR code")
}

func runReceive(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	hexAddr, bech, err := cc.targetAddress(args)
	if err != nil {
		return err
	}

	view := &ReceiveView{HexAddress: hexAddr, BechAddress: bech, QRData: formatQRData(hexAddr, bech, receiveHex)}
	if explorer := cc.Config.Network.BlockExplorer; explorer != "" {
		view.Explorer = explorer + "/address/" + bech
	}

	return cc.formatterFor(cmd).Emit(view, func(w io.Writer) error {
		outln(w, "Receiving address:")
		outln(w)
		out(w, "  Bech32: %s\n", view.BechAddress)
		out(w, "  Hex:    %s\n", view.HexAddress)
		if view.Explorer != "" {
			out(w, "  View:   %s\n", view.Explorer)
		}
		if receiveNoQR {
			return nil
		}
		outln(w)
		return writeQR(w, view.QRData)
	})
}

// formatQRData picks the encoding placed in the QR code.
func formatQRData(hexAddr, bech string, useHex bool) string {
	if useHex {
		return hexAddr
	}
	return bech
}

func writeQR(w io.Writer, data string) error {
	if output.CanRenderQR(w) {
		output.RenderQR(w, data)
		return nil
	}
	text, err := output.QRText(data)
	if err != nil {
		return err
	}
	out(w, "%s", text)
	return nil
}
