package keycrypto

import (
	"crypto/rand"
	"io"
)

// Reader is the randomness source for key generation. Tests may replace it.
//
//nolint:gochecknoglobals // swappable for deterministic tests
var Reader io.Reader = rand.Reader

// RandomBytes returns n bytes read from Reader.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
