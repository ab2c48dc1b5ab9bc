package balance

import (
	"context"
	"time"
)

// Scheduler waits between poll attempts.
type Scheduler interface {
	// Wait returns after d has elapsed, or with ctx's error once ctx is done.
	Wait(ctx context.Context, d time.Duration) error
}

// PollStatus is the state of a reconciliation poll.
type PollStatus int

// Poll states. Succeeded, Exhausted and Cancelled are terminal.
const (
	PollPolling PollStatus = iota
	PollSucceeded
	PollExhausted
	PollCancelled
)

func (s PollStatus) String() string {
	switch s {
	case PollPolling:
		return "polling"
	case PollSucceeded:
		return "succeeded"
	case PollExhausted:
		return "exhausted"
	case PollCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PollState describes one post-send reconciliation loop.
type PollState struct {
	Target      string
	Attempts    int
	MaxAttempts int
	Interval    time.Duration
	State       PollStatus
	Balance     *Balance
	LastErr     error
}

// Done reports whether the poll reached a terminal state.
func (s PollState) Done() bool {
	return s.State != PollPolling
}

// Poll fetches the balance of addr until one fetch succeeds or maxAttempts
// fetches have failed, waiting interval between attempts. Any successful
// fetch ends the poll, whether or not the amount changed. Running out of
// attempts is not an error.
func (r *Reconciler) Poll(ctx context.Context, addr string, maxAttempts int, interval time.Duration) PollState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	st := PollState{
		Target:      addr,
		MaxAttempts: maxAttempts,
		Interval:    interval,
		State:       PollPolling,
	}

	for st.State == PollPolling {
		if ctx.Err() != nil {
			st.State = PollCancelled
			break
		}

		r.recordAttempt()
		bal, err := r.Refresh(ctx, addr)
		if err == nil {
			st.Balance = bal
			st.State = PollSucceeded
			break
		}

		st.Attempts++
		st.LastErr = err
		r.logger.Debug("balance poll %s: attempt %d/%d failed: %v", addr, st.Attempts, maxAttempts, err)

		if ctx.Err() != nil {
			st.State = PollCancelled
			break
		}
		if st.Attempts >= maxAttempts {
			st.State = PollExhausted
			break
		}

		if err := r.scheduler.Wait(ctx, interval); err != nil {
			st.State = PollCancelled
		}
	}

	r.recordOutcome(st.State)
	return st
}

// PollUntilChanged runs Poll and reports whether a fetch succeeded.
func (r *Reconciler) PollUntilChanged(ctx context.Context, addr string, maxAttempts int, interval time.Duration) bool {
	return r.Poll(ctx, addr, maxAttempts, interval).State == PollSucceeded
}

// StartPoll runs Poll in the background. The final state is delivered on
// the returned channel, which is then closed.
func (r *Reconciler) StartPoll(ctx context.Context, addr string, maxAttempts int, interval time.Duration) <-chan PollState {
	out := make(chan PollState, 1)
	go func() {
		defer close(out)
		out <- r.Poll(ctx, addr, maxAttempts, interval)
	}()
	return out
}

func (r *Reconciler) recordAttempt() {
	if r.metrics != nil {
		r.metrics.RecordPollAttempt()
	}
}

func (r *Reconciler) recordOutcome(s PollStatus) {
	if r.metrics == nil {
		return
	}
	switch s {
	case PollSucceeded:
		r.metrics.RecordPollSucceeded()
	case PollExhausted:
		r.metrics.RecordPollExhausted()
	case PollCancelled:
		r.metrics.RecordPollCancelled()
	case PollPolling:
	}
}
