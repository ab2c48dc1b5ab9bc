package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/uccwallet/internal/keycrypto"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// minPassphraseLength is the shortest accepted backup passphrase.
const minPassphraseLength = 8

// errInvalidInput reports bad interactive input.
//
//nolint:gochecknoglobals // sentinel
var errInvalidInput = &walleterr.WalletError{
	Code:     "INVALID_INPUT",
	Message:  "invalid input",
	ExitCode: walleterr.ExitInput,
}

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // swapped in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptSecretFn      = promptSecret
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new backup passphrase with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter backup passphrase: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPassphraseLength {
		keycrypto.Zero(password)
		return nil, walleterr.WithSuggestion(
			errInvalidInput,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm passphrase: ")
	if err != nil {
		keycrypto.Zero(password)
		return nil, err
	}
	defer keycrypto.Zero(confirm)

	if string(password) != string(confirm) {
		keycrypto.Zero(password)
		return nil, walleterr.WithSuggestion(errInvalidInput, "passphrases do not match")
	}

	return password, nil
}

// promptSecret reads a mnemonic or private key. On a terminal the input is
// hidden; otherwise one line is read from stdin.
func promptSecret() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec // fd fits in int
		outln(os.Stderr, "Enter your recovery phrase or hex private key.")
		secret, err := promptPasswordFn("> ")
		if err != nil {
			return "", err
		}
		defer keycrypto.Zero(secret)
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
