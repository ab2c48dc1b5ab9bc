// Package token manages the user's custom ERC-20 token list and resolves
// token metadata from the chain.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/chain/eth"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/kvstore"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// StoreKey is the key the token list is persisted under.
const StoreKey = "customTokens"

// Info is one registered token.
type Info struct {
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Decimals   int    `json:"decimals"`
	Balance    string `json:"balance"`
	CustomName string `json:"customName,omitempty"`
}

// DisplayName returns the user's override name when set.
func (i Info) DisplayName() string {
	if i.CustomName != "" {
		return i.CustomName
	}
	return i.Name
}

// MetadataResolver resolves token metadata for a contract.
type MetadataResolver interface {
	Resolve(ctx context.Context, addr common.Address) (*Metadata, error)
}

// Registry owns the token list and keeps its persisted copy in sync.
// Every mutation writes the whole list.
type Registry struct {
	store    kvstore.Store
	resolver MetadataResolver
	caller   chain.Caller
	limiter  *chain.RateLimiter
	codec    address.Codec
	logger   *config.Logger

	mu     sync.Mutex
	tokens map[string]*Info
	order  []string
	loaded bool
	owner  *common.Address
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRateLimiter bounds concurrent balance queries.
func WithRateLimiter(l *chain.RateLimiter) RegistryOption {
	return func(r *Registry) {
		r.limiter = l
	}
}

// WithCodec sets the bech32 network accepted for token addresses.
func WithCodec(c address.Codec) RegistryOption {
	return func(r *Registry) {
		r.codec = c
	}
}

// WithRegistryLogger sets the logger for swallowed enrichment errors.
func WithRegistryLogger(l *config.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a registry persisting to store. caller is used for
// balanceOf queries and may be nil, in which case balances stay "0".
func NewRegistry(store kvstore.Store, resolver MetadataResolver, caller chain.Caller, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:    store,
		resolver: resolver,
		caller:   caller,
		limiter:  chain.DefaultRateLimiter(),
		codec:    address.NewCodec(address.DefaultPrefix),
		logger:   config.NullLogger(),
		tokens:   make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetOwner sets the account whose balance is queried on AddToken.
// A nil owner disables the initial balance lookup.
func (r *Registry) SetOwner(owner *common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner == nil {
		r.owner = nil
		return
	}
	o := *owner
	r.owner = &o
}

// NormalizeAddress returns the lowercased hex form of a token address.
// It accepts a missing 0x prefix and the bech32 form.
func (r *Registry) NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if r.codec.IsBech(raw) {
		return r.codec.BechToHex(raw)
	}
	if !strings.HasPrefix(strings.ToLower(raw), "0x") {
		raw = "0x" + raw
	}
	id, err := address.FromHex("0x" + raw[2:])
	if err != nil {
		return "", walleterr.Wrap(err, "invalid token address")
	}
	return address.ToHex(id), nil
}

// AddToken registers the token at addr. Adding a known address returns the
// existing entry without touching the chain.
func (r *Registry) AddToken(ctx context.Context, addr, customName string) (*Info, error) {
	key, err := r.NormalizeAddress(addr)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.ensureLoaded()
	if existing, ok := r.tokens[key]; ok {
		info := *existing
		r.mu.Unlock()
		return &info, nil
	}
	owner := r.owner
	r.mu.Unlock()

	if r.resolver == nil {
		return nil, walleterr.ErrProviderUnavailable
	}
	contract := common.HexToAddress(key)
	meta, err := r.resolver.Resolve(ctx, contract)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Address:    key,
		Symbol:     meta.Symbol,
		Name:       meta.Name,
		Decimals:   meta.Decimals,
		Balance:    "0",
		CustomName: strings.TrimSpace(customName),
	}
	if owner != nil {
		info.Balance = r.queryBalance(ctx, contract, *owner, info.Decimals)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tokens[key]; ok {
		// Added concurrently while resolving.
		out := *existing
		return &out, nil
	}
	r.tokens[key] = info
	r.order = append(r.order, key)
	if err := r.persistLocked(); err != nil {
		return nil, err
	}

	out := *info
	return &out, nil
}

// RemoveToken deletes the token at addr. It reports whether an entry was
// removed; the store is written only in that case.
func (r *Registry) RemoveToken(addr string) (bool, error) {
	key, err := r.NormalizeAddress(addr)
	if err != nil {
		return false, nil //nolint:nilerr // an unparseable address is simply not registered
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	if _, ok := r.tokens[key]; !ok {
		return false, nil
	}
	delete(r.tokens, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, r.persistLocked()
}

// ListTokens returns the registered tokens in insertion order.
func (r *Registry) ListTokens() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	out := make([]Info, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.tokens[k])
	}
	return out
}

// Get returns the token registered at addr.
func (r *Registry) Get(addr string) (*Info, error) {
	key, err := r.NormalizeAddress(addr)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	info, ok := r.tokens[key]
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrTokenNotFound, map[string]string{"address": key})
	}
	out := *info
	return &out, nil
}

// Reload drops the in-memory list so the next access re-reads the store.
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]*Info)
	r.order = nil
	r.loaded = false
}

// RefreshBalance updates the balance of one token for owner. A failed query
// sets the balance to "0"; only an unknown token is an error.
func (r *Registry) RefreshBalance(ctx context.Context, addr string, owner common.Address) error {
	key, err := r.NormalizeAddress(addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.ensureLoaded()
	info, ok := r.tokens[key]
	if !ok {
		r.mu.Unlock()
		return walleterr.WithDetails(walleterr.ErrTokenNotFound, map[string]string{"address": key})
	}
	decimals := info.Decimals
	r.mu.Unlock()

	bal := r.queryBalance(ctx, common.HexToAddress(key), owner, decimals)

	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok = r.tokens[key]
	if !ok {
		// Removed while querying.
		return nil
	}
	info.Balance = bal
	return r.persistLocked()
}

// RefreshAllBalances queries every token concurrently, waits for all of
// them and persists the list once.
func (r *Registry) RefreshAllBalances(ctx context.Context, owner common.Address) error {
	r.mu.Lock()
	r.ensureLoaded()
	type job struct {
		key      string
		decimals int
	}
	jobs := make([]job, 0, len(r.order))
	for _, k := range r.order {
		jobs = append(jobs, job{key: k, decimals: r.tokens[k].Decimals})
	}
	r.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	results := make([]string, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.queryBalance(ctx, common.HexToAddress(j.key), owner, j.decimals)
		}()
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range jobs {
		if info, ok := r.tokens[j.key]; ok {
			info.Balance = results[i]
		}
	}
	return r.persistLocked()
}

// queryBalance returns the display balance or "0" on any failure.
func (r *Registry) queryBalance(ctx context.Context, token, owner common.Address, decimals int) string {
	if r.caller == nil {
		return "0"
	}
	if !chain.ValidDecimals(decimals) {
		r.logger.Debug("token %s: stored decimals %d out of range", token.Hex(), decimals)
		return "0"
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, "balanceOf"); err != nil {
			r.logger.Debug("token %s: balance query not started: %v", token.Hex(), err)
			return "0"
		}
	}

	bal, err := eth.BalanceOf(ctx, r.caller, token, owner)
	if err != nil {
		r.logger.Debug("token %s: balanceOf(%s) failed: %v", token.Hex(), owner.Hex(), err)
		return "0"
	}
	return chain.FormatUnits(bal, decimals)
}

// ensureLoaded rehydrates the list from the store on first access.
// Entries are kept as stored even if they would no longer resolve.
func (r *Registry) ensureLoaded() {
	if r.loaded {
		return
	}
	r.loaded = true

	raw, ok, err := r.store.Get(StoreKey)
	if err != nil {
		r.logger.Error("loading tokens: %v", err)
		return
	}
	if !ok || raw == "" {
		return
	}

	var stored []Info
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		r.logger.Error("loading tokens: %v", err)
		return
	}

	for i := range stored {
		info := stored[i]
		key := strings.ToLower(strings.TrimSpace(info.Address))
		if key == "" {
			continue
		}
		if _, dup := r.tokens[key]; dup {
			continue
		}
		info.Address = key
		if info.Balance == "" {
			info.Balance = "0"
		}
		r.tokens[key] = &info
		r.order = append(r.order, key)
	}
}

func (r *Registry) persistLocked() error {
	list := make([]Info, 0, len(r.order))
	for _, k := range r.order {
		list = append(list, *r.tokens[k])
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}
	if err := r.store.Set(StoreKey, string(data)); err != nil {
		return walleterr.Wrap(err, "saving tokens")
	}
	return nil
}
