// Package cache keeps the last known native balance of each address so the
// CLI can still show one when the chain cannot be reached.
package cache

import (
	"sync"
	"time"

	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/metrics"
)

// DefaultStaleness is the age after which an entry is reported as stale.
const DefaultStaleness = 5 * time.Minute

// Entry is one cached balance in base units.
type Entry struct {
	Address   string    `json:"address"`
	Denom     string    `json:"denom"`
	Amount    string    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance returns the entry as a balance value.
func (e Entry) Balance() balance.Balance {
	return balance.Balance{Denom: e.Denom, Amount: e.Amount}
}

// BalanceCache stores the last known balances keyed by address and denom.
type BalanceCache struct {
	mu      sync.RWMutex
	Entries map[string]Entry `json:"entries"`

	now     func() time.Time
	metrics *metrics.Metrics
}

// NewBalanceCache creates an empty cache. m may be nil.
func NewBalanceCache(m *metrics.Metrics) *BalanceCache {
	c := &BalanceCache{Entries: make(map[string]Entry)}
	c.init(m)
	return c
}

func (c *BalanceCache) init(m *metrics.Metrics) {
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	if m == nil {
		m = metrics.Global
	}
	c.now = time.Now
	c.metrics = m
}

// Key returns the cache key of an address and denom.
func Key(address, denom string) string {
	return address + ":" + denom
}

// Get returns the entry, whether it exists and its age.
func (c *BalanceCache) Get(address, denom string) (*Entry, bool, time.Duration) {
	c.mu.RLock()
	entry, ok := c.Entries[Key(address, denom)]
	c.mu.RUnlock()

	if !ok {
		c.metrics.RecordCacheMiss()
		return nil, false, 0
	}
	c.metrics.RecordCacheHit()
	return &entry, true, c.now().Sub(entry.UpdatedAt)
}

// Put records bal as the latest balance of address.
func (c *BalanceCache) Put(address string, bal balance.Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[Key(address, bal.Denom)] = Entry{
		Address:   address,
		Denom:     bal.Denom,
		Amount:    bal.Amount,
		UpdatedAt: c.now(),
	}
}

// Sink returns a tracker sink that feeds the cache.
func (c *BalanceCache) Sink() balance.Sink {
	return c.Put
}

// IsStale reports whether the entry is missing or older than staleness.
func (c *BalanceCache) IsStale(address, denom string, staleness time.Duration) bool {
	_, ok, age := c.Get(address, denom)
	return !ok || age > staleness
}

// Delete removes every entry of address.
func (c *BalanceCache) Delete(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.Entries {
		if entry.Address == address {
			delete(c.Entries, key)
		}
	}
}

// Size returns the number of entries.
func (c *BalanceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Entries)
}

// Prune removes entries older than maxAge and returns how many were removed.
func (c *BalanceCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for key, entry := range c.Entries {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.Entries, key)
			removed++
		}
	}
	return removed
}

func (c *BalanceCache) snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Entry, len(c.Entries))
	for k, v := range c.Entries {
		out[k] = v
	}
	return out
}
