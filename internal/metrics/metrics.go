// Package metrics keeps process-local counters for the wallet core.
// Counters are atomic so they can be bumped from poll and refresh goroutines.
package metrics

import (
	"sync/atomic"
	"time"
)

// RPC sources.
const (
	SourceChain    = "chain"
	SourceProvider = "provider"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// RPC metrics
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64
	chainRPCCalls   atomic.Int64
	providerCalls   atomic.Int64

	// Poll outcomes
	pollsSucceeded atomic.Int64
	pollsExhausted atomic.Int64
	pollsCancelled atomic.Int64
	pollAttempts   atomic.Int64

	// Token metadata resolution
	metadataFallbacks atomic.Int64
	metadataDefaults  atomic.Int64

	// Wallet operation metrics
	walletOpsTotal  atomic.Int64
	walletOpsErrors atomic.Int64

	// Cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(source string, duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}

	switch source {
	case SourceChain:
		m.chainRPCCalls.Add(1)
	case SourceProvider:
		m.providerCalls.Add(1)
	}
}

// RecordPollAttempt counts one balance fetch made by a poller.
func (m *Metrics) RecordPollAttempt() {
	m.pollAttempts.Add(1)
}

// RecordPollSucceeded counts a poll that ended with a successful fetch.
func (m *Metrics) RecordPollSucceeded() {
	m.pollsSucceeded.Add(1)
}

// RecordPollExhausted counts a poll that ran out of attempts.
func (m *Metrics) RecordPollExhausted() {
	m.pollsExhausted.Add(1)
}

// RecordPollCancelled counts a poll stopped by its context.
func (m *Metrics) RecordPollCancelled() {
	m.pollsCancelled.Add(1)
}

// RecordMetadataFallback counts a metadata field answered by a lower tier.
func (m *Metrics) RecordMetadataFallback() {
	m.metadataFallbacks.Add(1)
}

// RecordMetadataDefault counts a metadata field that fell through to its default.
func (m *Metrics) RecordMetadataDefault() {
	m.metadataDefaults.Add(1)
}

// RecordWalletOp records a wallet operation.
func (m *Metrics) RecordWalletOp(err error) {
	m.walletOpsTotal.Add(1)
	if err != nil {
		m.walletOpsErrors.Add(1)
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal     int64 `json:"rpc_calls_total"`
	RPCErrorsTotal    int64 `json:"rpc_errors_total"`
	RPCLatencyNanos   int64 `json:"rpc_latency_nanos"`
	ChainRPCCalls     int64 `json:"chain_rpc_calls"`
	ProviderCalls     int64 `json:"provider_calls"`
	PollAttempts      int64 `json:"poll_attempts"`
	PollsSucceeded    int64 `json:"polls_succeeded"`
	PollsExhausted    int64 `json:"polls_exhausted"`
	PollsCancelled    int64 `json:"polls_cancelled"`
	MetadataFallbacks int64 `json:"metadata_fallbacks"`
	MetadataDefaults  int64 `json:"metadata_defaults"`
	WalletOpsTotal    int64 `json:"wallet_ops_total"`
	WalletOpsErrors   int64 `json:"wallet_ops_errors"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RPCCallsTotal:     m.rpcCallsTotal.Load(),
		RPCErrorsTotal:    m.rpcErrorsTotal.Load(),
		RPCLatencyNanos:   m.rpcLatencyNanos.Load(),
		ChainRPCCalls:     m.chainRPCCalls.Load(),
		ProviderCalls:     m.providerCalls.Load(),
		PollAttempts:      m.pollAttempts.Load(),
		PollsSucceeded:    m.pollsSucceeded.Load(),
		PollsExhausted:    m.pollsExhausted.Load(),
		PollsCancelled:    m.pollsCancelled.Load(),
		MetadataFallbacks: m.metadataFallbacks.Load(),
		MetadataDefaults:  m.metadataDefaults.Load(),
		WalletOpsTotal:    m.walletOpsTotal.Load(),
		WalletOpsErrors:   m.walletOpsErrors.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
	}
}

// RPCCallsTotal returns the total number of RPC calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of RPC errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
// Returns 0 if no cache operations have occurred.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.rpcCallsTotal, &m.rpcErrorsTotal, &m.rpcLatencyNanos,
		&m.chainRPCCalls, &m.providerCalls,
		&m.pollsSucceeded, &m.pollsExhausted, &m.pollsCancelled, &m.pollAttempts,
		&m.metadataFallbacks, &m.metadataDefaults,
		&m.walletOpsTotal, &m.walletOpsErrors,
		&m.cacheHits, &m.cacheMisses,
	} {
		c.Store(0)
	}
}
