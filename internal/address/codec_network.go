package address

import (
	"strings"

	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Codec binds the conversion functions to one network prefix.
type Codec struct {
	Prefix string
}

// NewCodec creates a codec for the given bech32 prefix.
// An empty prefix falls back to DefaultPrefix.
func NewCodec(prefix string) Codec {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Codec{Prefix: strings.ToLower(prefix)}
}

// HexToBech converts a hex address to the bech32 form.
func (c Codec) HexToBech(hexAddr string) (string, error) {
	id, err := FromHex(hexAddr)
	if err != nil {
		return "", err
	}
	return ToBech(id, c.Prefix)
}

// BechToHex converts a bech32 address of this network to the hex form.
func (c Codec) BechToHex(bechAddr string) (string, error) {
	prefix, id, err := DecodeBech(bechAddr)
	if err != nil {
		return "", err
	}
	if prefix != c.Prefix {
		return "", walleterr.WithDetails(walleterr.ErrInvalidFormat, map[string]string{
			"expected_prefix": c.Prefix,
			"prefix":          prefix,
		})
	}
	return ToHex(id), nil
}

// IsBech reports whether s looks like a bech32 address of this network.
// It checks the prefix only, not the checksum.
func (c Codec) IsBech(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), c.Prefix+"1")
}

// Normalize accepts either encoding and returns the identifier.
// Anything that is neither 0x-prefixed nor carries the network prefix,
// or fails to decode, is reported as ErrInvalidRecipient.
func (c Codec) Normalize(recipient string) (ID, error) {
	recipient = strings.TrimSpace(recipient)

	var (
		id  ID
		err error
	)
	switch {
	case strings.HasPrefix(recipient, hexPrefix):
		id, err = FromHex(recipient)
	case c.IsBech(recipient):
		var hexAddr string
		hexAddr, err = c.BechToHex(recipient)
		if err == nil {
			id, err = FromHex(hexAddr)
		}
	default:
		return id, walleterr.WithDetails(walleterr.ErrInvalidRecipient, map[string]string{
			"reason": "expected a " + c.Prefix + " or 0x address",
		})
	}

	if err != nil {
		return id, walleterr.WithCause(walleterr.ErrInvalidRecipient, err)
	}
	return id, nil
}

// Pair returns both encodings of id.
func (c Codec) Pair(id ID) (hexAddr, bechAddr string, err error) {
	bechAddr, err = ToBech(id, c.Prefix)
	if err != nil {
		return "", "", err
	}
	return ToHex(id), bechAddr, nil
}
