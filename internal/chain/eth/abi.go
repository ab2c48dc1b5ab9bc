package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/chain"
)

// erc20ABI covers the read-only ERC-20 surface the wallet uses.
const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

//nolint:gochecknoglobals // Parsed once, read-only afterwards
var (
	abiOnce     sync.Once
	erc20Parsed abi.ABI
)

func loadABIs() {
	abiOnce.Do(func() {
		erc20Parsed = mustParse(erc20ABI)
	})
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parsing built-in ABI: %v", err))
	}
	return parsed
}

// ERC20ABI returns the parsed ERC-20 ABI.
func ERC20ABI() *abi.ABI {
	loadABIs()
	return &erc20Parsed
}

// CallMethod packs method with args, calls contract and unpacks the outputs
// strictly according to parsed.
func CallMethod(ctx context.Context, caller chain.Caller, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	out, err := caller.Call(ctx, contract, data)
	if err != nil {
		return nil, err
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	return values, nil
}

// BalanceOf returns the ERC-20 balance of owner at token.
func BalanceOf(ctx context.Context, caller chain.Caller, token, owner common.Address) (*big.Int, error) {
	values, err := CallMethod(ctx, caller, token, ERC20ABI(), "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf: expected 1 output, got %d", len(values))
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type %T", values[0])
	}
	return bal, nil
}
