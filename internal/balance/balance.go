// Package balance fetches native balances, converts between base and
// display units, and keeps balances fresh after sends and on new blocks.
package balance

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/metrics"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Balance is an amount of one denomination in base units.
type Balance struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Reconciler reads native balances and reconciles them into a Tracker.
type Reconciler struct {
	reader    chain.BalanceReader
	codec     address.Codec
	denom     string
	scheduler Scheduler
	tracker   *Tracker
	logger    *config.Logger
	metrics   *metrics.Metrics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCodec sets the bech32 network of the addresses being queried.
func WithCodec(c address.Codec) Option {
	return func(r *Reconciler) { r.codec = c }
}

// WithDenom sets the native denomination reported in balances.
func WithDenom(denom string) Option {
	return func(r *Reconciler) {
		if denom != "" {
			r.denom = denom
		}
	}
}

// WithScheduler replaces the timer-based scheduler used between poll attempts.
func WithScheduler(s Scheduler) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.scheduler = s
		}
	}
}

// WithTracker sets where refreshed balances are written.
func WithTracker(t *Tracker) Option {
	return func(r *Reconciler) { r.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *config.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records poll outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// NewReconciler creates a reconciler. reader may be nil, in which case every
// fetch fails with ErrProviderUnavailable.
func NewReconciler(reader chain.BalanceReader, opts ...Option) *Reconciler {
	r := &Reconciler{
		reader:    reader,
		codec:     address.NewCodec(address.DefaultPrefix),
		denom:     config.DefaultNativeDenom,
		scheduler: TimerScheduler{},
		tracker:   NewTracker(nil),
		logger:    config.NullLogger(),
		metrics:   metrics.Global,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tracker returns the tracker refreshed balances are written to.
func (r *Reconciler) Tracker() *Tracker {
	return r.tracker
}

// FetchNativeBalance queries the native balance of a bech32 address.
// A 0x address is accepted as well.
func (r *Reconciler) FetchNativeBalance(ctx context.Context, addr string) (*Balance, error) {
	if r.reader == nil {
		return nil, walleterr.ErrProviderUnavailable
	}

	id, err := r.resolve(addr)
	if err != nil {
		return nil, err
	}

	amount, err := r.reader.GetNativeBalance(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Balance{Denom: r.denom, Amount: amount.String()}, nil
}

// Refresh fetches the balance of addr and records it in the tracker.
// A result arriving after ctx is done is discarded.
func (r *Reconciler) Refresh(ctx context.Context, addr string) (*Balance, error) {
	bal, err := r.FetchNativeBalance(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.tracker.Set(addr, *bal)
	return bal, nil
}

func (r *Reconciler) resolve(addr string) (address.ID, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") {
		return address.FromHex(addr)
	}
	hexAddr, err := r.codec.BechToHex(addr)
	if err != nil {
		return address.ID{}, err
	}
	return address.FromHex(hexAddr)
}

// ToDisplayUnits shifts a base-unit integer string by decimals. The result
// is exact; trailing fractional zeros are dropped.
func ToDisplayUnits(amount string, decimals int) (string, error) {
	if !chain.ValidDecimals(decimals) {
		return "", walleterr.WithDetails(walleterr.ErrMalformedAmount, decimalsDetails(amount, decimals))
	}
	if !chain.IsBaseUnitString(amount) {
		return "", walleterr.WithDetails(walleterr.ErrMalformedAmount, map[string]string{"amount": amount})
	}
	n, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return "", walleterr.WithDetails(walleterr.ErrMalformedAmount, map[string]string{"amount": amount})
	}
	return chain.FormatUnits(n, decimals), nil
}

// ToBaseUnits parses a display amount into base units.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	if !chain.ValidDecimals(decimals) {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, decimalsDetails(amount, decimals))
	}
	n, ok := chain.ParseUnits(amount, decimals)
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": amount})
	}
	return n, nil
}

func decimalsDetails(amount string, decimals int) map[string]string {
	return map[string]string{
		"amount":   amount,
		"decimals": strconv.Itoa(decimals),
		"reason":   fmt.Sprintf("decimals must be between 0 and %d", chain.MaxDecimals),
	}
}

// TimerScheduler waits using real timers.
type TimerScheduler struct{}

// Wait blocks for d or until ctx is done.
func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
