package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/output"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

func withReceiveFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		receiveHex = false
		receiveNoQR = false
	})
}

func TestFormatQRData(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ucc1abc", formatQRData("0xabc", "ucc1abc", false))
	assert.Equal(t, "0xabc", formatQRData("0xabc", "ucc1abc", true))
}

func TestReceive_RememberedWallet(t *testing.T) {
	withReceiveFlags(t)
	env := newTestEnv(t, output.FormatJSON)
	env.cc.Config.Network.BlockExplorer = "https://explorer.example"
	env.rememberWallet(t, testHex)

	cmd, stdout, _ := env.command()
	require.NoError(t, runReceive(cmd, nil))

	var view ReceiveView
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &view))
	bech := bechOf(t, testHex)
	assert.Equal(t, testHex, view.HexAddress)
	assert.Equal(t, bech, view.BechAddress)
	assert.Equal(t, bech, view.QRData)
	assert.Equal(t, "https://explorer.example/address/"+bech, view.Explorer)
}

func TestReceive_TextWithQR(t *testing.T) {
	withReceiveFlags(t)
	env := newTestEnv(t, output.FormatText)
	receiveHex = true

	cmd, stdout, _ := env.command()
	require.NoError(t, runReceive(cmd, []string{bechOf(t, testHex)}))

	text := stdout.String()
	assert.Contains(t, text, "Receiving address:")
	assert.Contains(t, text, testHex)
	// A plain rendering is used off-terminal.
	assert.Greater(t, len(text), 200)
}

func TestReceive_NoQR(t *testing.T) {
	withReceiveFlags(t)
	env := newTestEnv(t, output.FormatText)
	receiveNoQR = true

	cmd, stdout, _ := env.command()
	require.NoError(t, runReceive(cmd, []string{testHex}))

	lines := 0
	for _, c := range stdout.String() {
		if c == '\n' {
			lines++
		}
	}
	assert.LessOrEqual(t, lines, 5)
}

func TestReceive_NoWallet(t *testing.T) {
	withReceiveFlags(t)
	env := newTestEnv(t, output.FormatText)

	cmd, _, _ := env.command()
	err := runReceive(cmd, nil)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrWalletNotFound))
}

func TestReceive_InvalidAddress(t *testing.T) {
	withReceiveFlags(t)
	env := newTestEnv(t, output.FormatText)

	cmd, _, _ := env.command()
	err := runReceive(cmd, []string{"nope"})
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrInvalidRecipient))
}
