package cli

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/output"
	"github.com/mrz1836/uccwallet/internal/token"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

func withTokenFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { tokenName = "" })
}

func deployTestDollar(env *testEnv, owner string, amount int64) {
	env.reader.deploy(testTokenHex, &erc20{
		name: "Test Dollar", symbol: "TUSD", decimals: 6,
		balances: map[common.Address]*big.Int{common.HexToAddress(owner): big.NewInt(amount)},
	})
}

func TestTokenAdd(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatJSON)
	env.rememberWallet(t, testHex)
	deployTestDollar(env, testHex, 1_000_000)

	cmd, stdout, stderr := env.command()
	require.NoError(t, runTokenAdd(cmd, []string{testTokenHex}))
	assert.Contains(t, stderr.String(), "Tracking Test Dollar")

	var info token.Info
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.Equal(t, testTokenHex, info.Address)
	assert.Equal(t, "TUSD", info.Symbol)
	assert.Equal(t, "Test Dollar", info.Name)
	assert.Equal(t, 6, info.Decimals)
	assert.Equal(t, "1", info.Balance, "balance of the remembered wallet is queried on add")
}

func TestTokenAdd_CustomNameAndBech(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatJSON)
	deployTestDollar(env, testHex, 0)
	tokenName = "My Dollar"

	cmd, stdout, _ := env.command()
	require.NoError(t, runTokenAdd(cmd, []string{bechOf(t, testTokenHex)}))

	var info token.Info
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.Equal(t, testTokenHex, info.Address)
	assert.Equal(t, "My Dollar", info.DisplayName())
	assert.Equal(t, "0", info.Balance)
}

func TestTokenAdd_NoContract(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatJSON)

	cmd, _, _ := env.command()
	err := runTokenAdd(cmd, []string{testTokenHex})
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrNoContractFound))
	assert.Empty(t, env.cc.registry(nil).ListTokens())
}

func TestTokenListAndRemove(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatJSON)
	deployTestDollar(env, testHex, 0)

	cmd, _, _ := env.command()
	require.NoError(t, runTokenAdd(cmd, []string{testTokenHex}))

	cmd, stdout, _ := env.command()
	require.NoError(t, runTokenList(cmd, nil))
	var listed []token.Info
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "TUSD", listed[0].Symbol)

	cmd, stdout, _ = env.command()
	require.NoError(t, runTokenRemove(cmd, []string{testTokenHex}))
	var removed TokenRemoveView
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &removed))
	assert.True(t, removed.Removed)

	cmd, stdout, stderr := env.command()
	require.NoError(t, runTokenRemove(cmd, []string{testTokenHex}))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &removed))
	assert.False(t, removed.Removed)
	assert.Contains(t, stderr.String(), "not tracked")
}

func TestTokenList_EmptyText(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatText)

	cmd, stdout, _ := env.command()
	require.NoError(t, runTokenList(cmd, nil))
	assert.Contains(t, stdout.String(), "No tokens tracked")
}

func TestTokenRefresh(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatJSON)
	deployTestDollar(env, testHex, 0)

	cmd, _, _ := env.command()
	require.NoError(t, runTokenAdd(cmd, []string{testTokenHex}))

	cmd, _, _ = env.command()
	err := runTokenRefresh(cmd, nil)
	require.Error(t, err, "refresh needs a remembered wallet")
	assert.True(t, walleterr.Is(err, walleterr.ErrWalletNotFound))

	env.rememberWallet(t, testHex)
	deployTestDollar(env, testHex, 4_200_000)

	cmd, stdout, _ := env.command()
	require.NoError(t, runTokenRefresh(cmd, []string{testTokenHex}))
	var tokens []token.Info
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, "4.2", tokens[0].Balance)
}

func TestTokenTable(t *testing.T) {
	withTokenFlags(t)
	env := newTestEnv(t, output.FormatText)
	deployTestDollar(env, testHex, 0)

	cmd, stdout, _ := env.command()
	require.NoError(t, runTokenAdd(cmd, []string{testTokenHex}))

	text := stdout.String()
	assert.Contains(t, text, "SYMBOL")
	assert.Contains(t, text, "TUSD")
	assert.Contains(t, text, testTokenHex)
}
