package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/chain/eth"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/metrics"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Defaults used when a contract does not answer a metadata query.
const (
	DefaultName     = "Unknown Token"
	DefaultSymbol   = "UNKNOWN"
	DefaultDecimals = 18
)

// Metadata is the descriptive data of an ERC-20 contract.
type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ContractReader is the chain capability the resolver needs.
type ContractReader interface {
	chain.CodeReader
	chain.Caller
}

var (
	errEmptyResult  = errors.New("empty result")
	errUnexpected   = errors.New("unexpected output")
	errOutOfRange   = errors.New("decimals out of range")
	errInvalidBytes = errors.New("not a printable bytes32 string")
)

//nolint:gochecknoglobals // selectors are fixed by the ABI
var (
	selName     = Selector("name()")
	selSymbol   = Selector("symbol()")
	selDecimals = Selector("decimals()")

	// Fixed-size accessors of early tokens. These are the wire selectors
	// deployed contracts answer to, so they are not derived from a signature.
	selLegacyName   = hexutil.MustDecode("0xa3f4df7e")
	selLegacySymbol = hexutil.MustDecode("0xb76a7f31")
)

// Selector returns the 4-byte function selector of a canonical signature.
func Selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// Resolver reads name, symbol and decimals from a token contract, falling
// back through progressively looser decodings and finally to defaults.
type Resolver struct {
	reader  ContractReader
	timeout time.Duration
	logger  *config.Logger
	metrics *metrics.Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCallTimeout bounds every individual contract call.
func WithCallTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *config.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverMetrics records fallbacks in m.
func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a metadata resolver over reader.
func NewResolver(reader ContractReader, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reader:  reader,
		timeout: config.DefaultCallTimeout,
		logger:  config.NullLogger(),
		metrics: metrics.Global,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the metadata of the contract at addr. It fails only when
// the code lookup fails or there is no contract; every metadata field that
// cannot be read falls back to its default.
func (r *Resolver) Resolve(ctx context.Context, addr common.Address) (*Metadata, error) {
	if r.reader == nil {
		return nil, walleterr.ErrProviderUnavailable
	}

	codeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	code, err := r.reader.GetCode(codeCtx, addr)
	cancel()
	if err != nil {
		return nil, walleterr.Wrap(err, "checking contract %s", addr.Hex())
	}
	if len(code) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrNoContractFound, map[string]string{
			"address": addr.Hex(),
		})
	}

	return &Metadata{
		Name:     r.resolveString(ctx, addr, "name", selName, selLegacyName, DefaultName),
		Symbol:   r.resolveString(ctx, addr, "symbol", selSymbol, selLegacySymbol, DefaultSymbol),
		Decimals: r.resolveDecimals(ctx, addr),
	}, nil
}

func (r *Resolver) resolveString(ctx context.Context, addr common.Address, method string, sel, legacySel []byte, def string) string {
	// Tier 1: typed ABI call.
	values, err := r.typedCall(ctx, addr, method)
	if err == nil {
		if s, ok := values[0].(string); ok && s != "" {
			return s
		}
		err = errUnexpected
	}
	r.logger.Debug("token %s: %s() typed call failed: %v", addr.Hex(), method, err)
	r.recordFallback()

	// Tier 2: raw selector, string or bytes32.
	out, err := r.rawCall(ctx, addr, sel)
	if err == nil {
		var s string
		if s, err = decodeStringOrBytes32(out); err == nil {
			return s
		}
	}
	r.logger.Debug("token %s: raw %s() failed: %v", addr.Hex(), method, err)

	// Tier 3: legacy bytes32 variant.
	out, err = r.rawCall(ctx, addr, legacySel)
	if err == nil {
		var s string
		if s, err = decodeBytes32String(out); err == nil {
			return s
		}
	}
	r.logger.Debug("token %s: legacy %X failed: %v, using %q", addr.Hex(), legacySel, err, def)
	r.recordDefault()
	return def
}

func (r *Resolver) resolveDecimals(ctx context.Context, addr common.Address) int {
	values, err := r.typedCall(ctx, addr, "decimals")
	if err == nil {
		if d, ok := values[0].(uint8); ok {
			return int(d)
		}
		err = errUnexpected
	}
	r.logger.Debug("token %s: decimals() typed call failed: %v", addr.Hex(), err)
	r.recordFallback()

	out, err := r.rawCall(ctx, addr, selDecimals)
	if err == nil {
		var d int
		if d, err = decodeDecimals(out); err == nil {
			return d
		}
	}
	r.logger.Debug("token %s: raw decimals() failed: %v, using %d", addr.Hex(), err, DefaultDecimals)
	r.recordDefault()
	return DefaultDecimals
}

func (r *Resolver) typedCall(ctx context.Context, addr common.Address, method string) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	values, err := eth.CallMethod(ctx, r.reader, addr, eth.ERC20ABI(), method)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, errUnexpected
	}
	return values, nil
}

func (r *Resolver) rawCall(ctx context.Context, addr common.Address, sel []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.reader.Call(ctx, addr, sel)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errEmptyResult
	}
	return out, nil
}

func (r *Resolver) recordFallback() {
	if r.metrics != nil {
		r.metrics.RecordMetadataFallback()
	}
}

func (r *Resolver) recordDefault() {
	if r.metrics != nil {
		r.metrics.RecordMetadataDefault()
	}
}

//nolint:gochecknoglobals // parsed once
var stringArgs = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// decodeStringOrBytes32 decodes an ABI string, or a bytes32 when the return
// data is exactly one word.
func decodeStringOrBytes32(out []byte) (string, error) {
	if len(out) == 32 {
		return decodeBytes32String(out)
	}

	values, err := stringArgs.Unpack(out)
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok || s == "" {
		return "", errEmptyResult
	}
	return s, nil
}

// decodeBytes32String reads the first word as a NUL-padded string.
func decodeBytes32String(out []byte) (string, error) {
	if len(out) < 32 {
		return "", errUnexpected
	}
	word := out[:32]
	if i := bytes.IndexByte(word, 0); i >= 0 {
		if len(bytes.Trim(word[i:], "\x00")) != 0 {
			return "", errInvalidBytes
		}
		word = word[:i]
	}
	if len(word) == 0 {
		return "", errEmptyResult
	}
	if !utf8.Valid(word) {
		return "", errInvalidBytes
	}
	return string(word), nil
}

// decodeDecimals reads the first word as an unsigned integer in uint8 range.
func decodeDecimals(out []byte) (int, error) {
	if len(out) < 32 {
		return 0, errUnexpected
	}
	v := new(big.Int).SetBytes(out[:32])
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, errOutOfRange
	}
	return int(v.Uint64()), nil
}
