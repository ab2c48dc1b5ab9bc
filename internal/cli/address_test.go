package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/output"
)

func TestConvertAddress(t *testing.T) {
	t.Parallel()

	codec := address.NewCodec(config.DefaultBech32Prefix)
	bech := bechOf(t, testHex)

	tests := []struct {
		name  string
		input string
	}{
		{"lower hex", testHex},
		{"checksum hex", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"},
		{"bech32", bech},
		{"padded", "  " + bech + "\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			view, err := convertAddress(codec, tc.input)
			require.NoError(t, err)
			assert.Equal(t, testHex, view.Hex)
			assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", view.Checksum)
			assert.Equal(t, bech, view.Bech)
		})
	}
}

func TestConvertAddress_Invalid(t *testing.T) {
	t.Parallel()

	codec := address.NewCodec(config.DefaultBech32Prefix)
	for _, input := range []string{"", "0x1234", "742d35cc6634c0532925a3b844bc454e4438f44e", "ucc1notbech32", "cosmos1qqqq"} {
		_, err := convertAddress(codec, input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestRunAddressConvert_JSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, output.FormatJSON)
	cmd, stdout, _ := env.command()

	require.NoError(t, runAddressConvert(cmd, []string{testHex}))

	var view AddressView
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &view))
	assert.Equal(t, bechOf(t, testHex), view.Bech)
}
