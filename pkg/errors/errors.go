// Package errors provides structured error handling for the UCC wallet.
// It defines the sentinel error taxonomy, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid user input
	ExitProvider = 3 // Wallet provider missing, locked or unreachable
	ExitNotFound = 4 // Resource not found
	ExitRejected = 5 // Transaction rejected by provider or network
)

// WalletError is the structured error type used across the wallet core.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *WalletError) Error() string {
	msg := e.Message

	// Details are sorted for deterministic output
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError by comparing codes.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	// Input and encoding errors.
	ErrInvalidFormat = &WalletError{
		Code:     "INVALID_FORMAT",
		Message:  "invalid format",
		ExitCode: ExitInput,
	}

	ErrEncoding = &WalletError{
		Code:     "ENCODING_ERROR",
		Message:  "address encoding failed",
		ExitCode: ExitInput,
	}

	ErrInvalidRecipient = &WalletError{
		Code:     "INVALID_RECIPIENT",
		Message:  "invalid recipient address",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrMalformedAmount = &WalletError{
		Code:     "MALFORMED_AMOUNT",
		Message:  "amount is not a non-negative integer",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &WalletError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrInvalidPrivateKey = &WalletError{
		Code:     "INVALID_PRIVATE_KEY",
		Message:  "invalid private key",
		ExitCode: ExitInput,
	}

	// Token contract errors.
	ErrNoContractFound = &WalletError{
		Code:     "NO_CONTRACT_FOUND",
		Message:  "no contract found at this address",
		ExitCode: ExitNotFound,
	}

	ErrInvalidContract = &WalletError{
		Code:     "INVALID_CONTRACT",
		Message:  "invalid ERC20 token contract",
		ExitCode: ExitInput,
	}

	ErrTokenNotFound = &WalletError{
		Code:     "TOKEN_NOT_FOUND",
		Message:  "token not found",
		ExitCode: ExitNotFound,
	}

	// Provider and chain connectivity errors.
	ErrProviderMissing = &WalletError{
		Code:       "PROVIDER_MISSING",
		Message:    "wallet provider not found",
		Suggestion: "Install or start a wallet provider and set provider_rpc in the config",
		ExitCode:   ExitProvider,
	}

	ErrProviderUnavailable = &WalletError{
		Code:     "PROVIDER_UNAVAILABLE",
		Message:  "chain query provider not initialized",
		ExitCode: ExitProvider,
	}

	ErrNoAccounts = &WalletError{
		Code:       "NO_ACCOUNTS",
		Message:    "no accounts found",
		Suggestion: "Unlock the wallet provider and try again",
		ExitCode:   ExitProvider,
	}

	ErrUnrecognizedNetwork = &WalletError{
		Code:     "UNRECOGNIZED_NETWORK",
		Message:  "network has not been added to the wallet provider",
		ExitCode: ExitProvider,
	}

	ErrTimeout = &WalletError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: ExitGeneral,
	}

	ErrBroadcastFailure = &WalletError{
		Code:     "BROADCAST_FAILURE",
		Message:  "transaction failed",
		ExitCode: ExitRejected,
	}

	// Config errors.
	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrWalletNotFound = &WalletError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "no remembered wallet",
		ExitCode: ExitNotFound,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of the sentinel carrying cause as the underlying error.
// The provider's message is kept verbatim in the output.
func WithCause(sentinel *WalletError, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &WalletError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
