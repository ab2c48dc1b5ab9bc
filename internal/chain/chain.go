// Package chain defines the read-only view of the Universe chain that the
// wallet core depends on, plus shared retry, rate limiting and amount helpers.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CodeReader fetches deployed contract bytecode.
type CodeReader interface {
	// GetCode returns the bytecode at addr. Empty means no contract.
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
}

// BalanceReader fetches native coin balances.
type BalanceReader interface {
	// GetNativeBalance returns the balance of addr in base units.
	GetNativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Caller executes read-only contract calls.
type Caller interface {
	// Call runs eth_call against contract with the given calldata and
	// returns the raw return data.
	Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error)
}

// BlockReader reports chain progress.
type BlockReader interface {
	// BlockNumber returns the latest block height.
	BlockNumber(ctx context.Context) (uint64, error)
}

// Reader combines every read-only chain operation.
type Reader interface {
	CodeReader
	BalanceReader
	Caller
	BlockReader
}
