// Package address converts a 20-byte account identifier between its two
// textual encodings: the 0x-prefixed hex form and the bech32 form carrying
// the network's human-readable prefix.
package address

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"

	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Size is the length of an account identifier in bytes.
const Size = common.AddressLength

// DefaultPrefix is the bech32 human-readable prefix of the Universe chain.
const DefaultPrefix = "ucc"

// hexPrefix is the prefix of the hex encoding.
const hexPrefix = "0x"

// ID is the canonical 20-byte account identifier.
type ID = common.Address

// ToHex returns the lowercase 0x-prefixed hex encoding of id.
func ToHex(id ID) string {
	return hexPrefix + hex.EncodeToString(id[:])
}

// ToChecksumHex returns the EIP-55 mixed-case encoding of id, for display.
func ToChecksumHex(id ID) string {
	return id.Hex()
}

// FromHex parses a 0x-prefixed, 40 digit hex string. Case-insensitive.
func FromHex(text string) (ID, error) {
	var id ID
	if len(text) != len(hexPrefix)+2*Size || !strings.HasPrefix(text, hexPrefix) {
		return id, invalidFormat("hex", text)
	}

	raw, err := hex.DecodeString(text[len(hexPrefix):])
	if err != nil {
		return id, invalidFormat("hex", text)
	}

	copy(id[:], raw)
	return id, nil
}

// ToBech encodes id as bech32 with the given human-readable prefix.
func ToBech(id ID, prefix string) (string, error) {
	if prefix == "" {
		return "", walleterr.WithDetails(walleterr.ErrEncoding, map[string]string{
			"reason": "empty prefix",
		})
	}

	words, err := bech32.ConvertBits(id[:], 8, 5, true)
	if err != nil {
		return "", walleterr.WithCause(walleterr.ErrEncoding, err)
	}

	encoded, err := bech32.Encode(strings.ToLower(prefix), words)
	if err != nil {
		return "", walleterr.WithCause(walleterr.ErrEncoding, err)
	}
	return encoded, nil
}

// FromBech decodes a bech32 string into an identifier. The prefix is not
// checked; use DecodeBech or Codec.BechToHex when it matters.
func FromBech(text string) (ID, error) {
	_, id, err := DecodeBech(text)
	return id, err
}

// DecodeBech decodes a bech32 string and returns its prefix and identifier.
func DecodeBech(text string) (string, ID, error) {
	var id ID

	prefix, words, err := bech32.Decode(text)
	if err != nil {
		return "", id, invalidFormat("bech32", text)
	}

	payload, err := bech32.ConvertBits(words, 5, 8, false)
	if err != nil || len(payload) != Size {
		return "", id, invalidFormat("bech32", text)
	}

	copy(id[:], payload)
	return prefix, id, nil
}

func invalidFormat(encoding, value string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidFormat, map[string]string{
		"encoding": encoding,
		"value":    value,
	})
}
