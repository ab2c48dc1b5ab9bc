package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimals value a token can declare (uint8).
const MaxDecimals = 255

// ValidDecimals reports whether d is within 0..MaxDecimals.
func ValidDecimals(d int) bool {
	return d >= 0 && d <= MaxDecimals
}

// FormatUnits renders a base-unit integer as an exact decimal string with
// the given number of decimals. Trailing fractional zeros are dropped.
// 1500000000000000000 with 18 decimals renders "1.5". decimals must satisfy
// ValidDecimals.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, int32(-decimals)).String() //nolint:gosec // G115: callers pass ValidDecimals values
}

// ParseUnits parses a decimal string into base units. ok is false for empty,
// negative, non-numeric or exponent input, and for input with more
// fractional digits than decimals allows. Decimals outside ValidDecimals
// are rejected.
func ParseUnits(amount string, decimals int) (*big.Int, bool) {
	if !ValidDecimals(decimals) {
		return nil, false
	}
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.ContainsAny(amount, "eE+-") {
		return nil, false
	}

	d, err := decimal.NewFromString(amount)
	if err != nil || d.IsNegative() {
		return nil, false
	}

	scaled := d.Shift(int32(decimals)) //nolint:gosec // G115: checked by ValidDecimals above
	if !scaled.IsInteger() {
		return nil, false
	}
	return scaled.BigInt(), true
}

// IsBaseUnitString reports whether s is a non-negative base-10 integer
// without sign, spaces or fraction.
func IsBaseUnitString(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
