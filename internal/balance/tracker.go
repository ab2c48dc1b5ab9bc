package balance

import "sync"

// Sink receives every balance written to a Tracker.
type Sink func(addr string, bal Balance)

// Tracker holds the latest balance per address. Writers are not ordered:
// whichever refresh completes last wins.
type Tracker struct {
	mu       sync.RWMutex
	balances map[string]Balance
	sink     Sink
}

// NewTracker creates a tracker. sink may be nil.
func NewTracker(sink Sink) *Tracker {
	return &Tracker{balances: make(map[string]Balance), sink: sink}
}

// Set records bal for addr and forwards it to the sink.
func (t *Tracker) Set(addr string, bal Balance) {
	t.mu.Lock()
	t.balances[addr] = bal
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(addr, bal)
	}
}

// Get returns the latest balance of addr.
func (t *Tracker) Get(addr string) (Balance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bal, ok := t.balances[addr]
	return bal, ok
}

// Forget drops the balance of addr.
func (t *Tracker) Forget(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.balances, addr)
}

// SetSink replaces the sink.
func (t *Tracker) SetSink(sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}
