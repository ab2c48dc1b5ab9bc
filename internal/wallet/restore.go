package wallet

import "strings"

// InputFormat is the detected kind of import input.
type InputFormat int

// Import input kinds.
const (
	FormatUnknown InputFormat = iota
	FormatMnemonic
	FormatHex
)

func (f InputFormat) String() string {
	switch f {
	case FormatMnemonic:
		return "mnemonic"
	case FormatHex:
		return "hex"
	case FormatUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// DetectInputFormat guesses whether input is a mnemonic or a hex key.
func DetectInputFormat(input string) InputFormat {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return FormatUnknown
	case isMnemonicFormat(input):
		return FormatMnemonic
	case isHexKeyFormat(input):
		return FormatHex
	default:
		return FormatUnknown
	}
}

// Import derives an account from either a mnemonic or a hex private key.
func Import(input string) (*Account, error) {
	if DetectInputFormat(input) == FormatHex {
		return FromPrivateKey(input)
	}
	return FromMnemonic(input, "")
}

// isMnemonicFormat accepts a phrase of several words where at least half
// are list words, so typos are still routed to mnemonic validation.
func isMnemonicFormat(input string) bool {
	words := strings.Fields(NormalizeMnemonicInput(input))
	if len(words) < 12 {
		return false
	}

	valid := 0
	for _, w := range words {
		if IsValidWord(w) {
			valid++
		}
	}
	return valid >= len(words)/2
}

func isHexKeyFormat(input string) bool {
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		input = input[2:]
	}
	if len(input) != 64 {
		return false
	}
	for _, c := range input {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
