// Package keycrypto holds the wallet's key-material helpers: passphrase
// encryption of mnemonic backups, locked memory for seeds and entropy.
package keycrypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

var (
	// ErrDecryptionFailed indicates a wrong passphrase or a damaged backup.
	ErrDecryptionFailed = &walleterr.WalletError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong passphrase or corrupted backup",
		ExitCode: walleterr.ExitInput,
	}

	// ErrEmptyPassphrase indicates an empty passphrase was supplied.
	ErrEmptyPassphrase = &walleterr.WalletError{
		Code:     "EMPTY_PASSPHRASE",
		Message:  "passphrase must not be empty",
		ExitCode: walleterr.ExitInput,
	}
)

// Encrypt encrypts plaintext to an ASCII-armored age file protected by
// passphrase.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	buf := &bytes.Buffer{}
	aw := armor.NewWriter(buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt reverses Encrypt. Both armored and binary age input are accepted.
func Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	var src io.Reader = bytes.NewReader(ciphertext)
	if strings.HasPrefix(strings.TrimSpace(string(ciphertext)), armor.Header) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(ciphertext)))
	}

	r, err := age.Decrypt(src, identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrDecryptionFailed
		}
		return nil, walleterr.WithCause(ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, walleterr.WithCause(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// DecryptSecure decrypts into locked memory and zeroes the intermediate copy.
func DecryptSecure(ciphertext []byte, passphrase string) (*SecureBytes, error) {
	plaintext, err := Decrypt(ciphertext, passphrase)
	if err != nil {
		return nil, err
	}
	defer Zero(plaintext)

	return SecureBytesFromSlice(plaintext)
}
