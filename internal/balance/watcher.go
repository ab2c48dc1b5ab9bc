package balance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/config"
)

// Watcher keeps one address's balance fresh. It refreshes on a fixed
// interval, whenever the chain height changes, and on Trigger. Interval and
// new-block refreshes are skipped while the watcher is paused.
type Watcher struct {
	rec           *Reconciler
	blocks        chain.BlockReader
	interval      time.Duration
	blockInterval time.Duration

	// paused counts outstanding Pause calls.
	paused atomic.Int32

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// NewWatcher creates a watcher. blocks may be nil to disable the new-block
// trigger. Zero intervals use the configured defaults.
func NewWatcher(rec *Reconciler, blocks chain.BlockReader, interval, blockInterval time.Duration) *Watcher {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	if blockInterval <= 0 {
		blockInterval = config.DefaultAccountPollInterval
	}
	return &Watcher{
		rec:           rec,
		blocks:        blocks,
		interval:      interval,
		blockInterval: blockInterval,
	}
}

// Start watches addr until Stop or ctx ends. A running watch is replaced.
func (w *Watcher) Start(ctx context.Context, addr string) {
	w.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	trigger := make(chan struct{}, 1)

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.trigger = trigger
	w.mu.Unlock()

	go w.run(ctx, addr, trigger, done)
}

// Trigger requests an immediate refresh. It never blocks.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	trigger := w.trigger
	w.mu.Unlock()

	if trigger == nil {
		return
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// Pause suspends interval and new-block refreshes until the returned
// resume func is called. Pauses nest; resume is safe to call twice.
func (w *Watcher) Pause() (resume func()) {
	w.paused.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { w.paused.Add(-1) })
	}
}

// Paused reports whether any Pause is outstanding.
func (w *Watcher) Paused() bool {
	return w.paused.Load() > 0
}

// Running reports whether a watch is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Stop ends the watch and waits for any in-flight refresh to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done, w.trigger = nil, nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) run(ctx context.Context, addr string, trigger <-chan struct{}, done chan struct{}) {
	defer close(done)

	refresh := time.NewTicker(w.interval)
	defer refresh.Stop()

	var blockC <-chan time.Time
	if w.blocks != nil {
		bt := time.NewTicker(w.blockInterval)
		defer bt.Stop()
		blockC = bt.C
	}

	var (
		lastBlock uint64
		haveBlock bool
	)

	w.refresh(ctx, addr)
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if !w.Paused() {
				w.refresh(ctx, addr)
			}
		case <-trigger:
			w.refresh(ctx, addr)
		case <-blockC:
			if w.Paused() {
				continue
			}
			height, err := w.blocks.BlockNumber(ctx)
			if err != nil {
				w.rec.logger.Debug("watcher: block number failed: %v", err)
				continue
			}
			if haveBlock && height != lastBlock {
				w.refresh(ctx, addr)
			}
			lastBlock, haveBlock = height, true
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, addr string) {
	if _, err := w.rec.Refresh(ctx, addr); err != nil && ctx.Err() == nil {
		w.rec.logger.Debug("watcher: refreshing %s failed: %v", addr, err)
	}
}
