package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/address"
)

// AddressView shows one account in every encoding.
type AddressView struct {
	Hex      string `json:"hex"`
	Checksum string `json:"checksum"`
	Bech     string `json:"bech32"`
}

// addressCmd is the parent command for address utilities.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Convert between address encodings",
	Long: `Work with Universe chain account addresses.

Every account has a 0x hex form used by EVM tooling and a bech32 form with
the network prefix (ucc1...) used by Cosmos tooling. Both name the same
20-byte identifier.`,
}

// addressConvertCmd converts an address to both encodings.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressConvertCmd = &cobra.Command{
	Use:   "convert <address>",
	Short: "Show an address in hex and bech32 form",
	Long: `Decode an address given in either encoding and print both forms.

The hex form is accepted in any letter case. The bech32 form must carry the
configured network prefix.`,
	Example: `  uccwallet address convert 0x742d35Cc6634C0532925a3b844Bc454e4438f44e
  uccwallet address convert ucc1wskntnrxxnq9x2f95wuyf0z9fezr3azwzj0gyc -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runAddressConvert,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	addressCmd.GroupID = "chain"
	rootCmd.AddCommand(addressCmd)
	addressCmd.AddCommand(addressConvertCmd)
}

func runAddressConvert(cmd *cobra.Command, args []string) error {
	cc := commandContext(cmd)

	view, err := convertAddress(cc.codec(), args[0])
	if err != nil {
		return err
	}

	return cc.formatterFor(cmd).Emit(view, func(w io.Writer) error {
		out(w, "Hex:      %s\n", view.Hex)
		out(w, "Checksum: %s\n", view.Checksum)
		out(w, "Bech32:   %s\n", view.Bech)
		return nil
	})
}

// convertAddress decodes input in either encoding.
func convertAddress(codec address.Codec, input string) (*AddressView, error) {
	input = strings.TrimSpace(input)

	hexAddr := input
	if codec.IsBech(input) {
		var err error
		if hexAddr, err = codec.BechToHex(input); err != nil {
			return nil, err
		}
	}

	id, err := address.FromHex(strings.ToLower(hexAddr))
	if err != nil {
		return nil, err
	}
	hexForm, bech, err := codec.Pair(id)
	if err != nil {
		return nil, err
	}
	return &AddressView{Hex: hexForm, Checksum: address.ToChecksumHex(id), Bech: bech}, nil
}
