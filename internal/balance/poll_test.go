package balance

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/metrics"
)

func TestPollExhaustsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{failures: -1}
	m := &metrics.Metrics{}
	r := NewReconciler(reader, WithMetrics(m))

	st := r.Poll(context.Background(), testBech, 5, 0)
	assert.Equal(t, PollExhausted, st.State)
	assert.Equal(t, 5, st.Attempts)
	assert.Equal(t, 5, reader.Calls())
	require.ErrorIs(t, st.LastErr, errNodeDown)
	assert.True(t, st.Done())

	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.PollAttempts)
	assert.Equal(t, int64(1), snap.PollsExhausted)
}

func TestPollUntilChangedExhaustedReturnsFalse(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{failures: -1}
	r := NewReconciler(reader, WithMetrics(&metrics.Metrics{}))

	assert.False(t, r.PollUntilChanged(context.Background(), testBech, 5, 0))
	assert.Equal(t, 5, reader.Calls())
}

func TestPollWaitsBetweenAttempts(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{failures: 2, balance: big.NewInt(42)}
	sched := &recordingScheduler{}
	r := NewReconciler(reader, WithScheduler(sched), WithMetrics(&metrics.Metrics{}))

	st := r.Poll(context.Background(), testBech, 5, 2*time.Second)
	assert.Equal(t, PollSucceeded, st.State)
	assert.Equal(t, 2, st.Attempts)
	require.NotNil(t, st.Balance)
	assert.Equal(t, "42", st.Balance.Amount)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sched.Waits())

	got, ok := r.Tracker().Get(testBech)
	require.True(t, ok)
	assert.Equal(t, "42", got.Amount)
}

func TestPollSucceedsOnUnchangedBalance(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{balance: big.NewInt(1)}
	r := NewReconciler(reader, WithMetrics(&metrics.Metrics{}))

	// Any successful fetch ends the poll.
	assert.True(t, r.PollUntilChanged(context.Background(), testBech, 5, time.Hour))
	assert.Equal(t, 1, reader.Calls())
}

func TestPollZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{failures: -1}
	r := NewReconciler(reader, WithMetrics(&metrics.Metrics{}))

	st := r.Poll(context.Background(), testBech, 0, 0)
	assert.Equal(t, PollExhausted, st.State)
	assert.Equal(t, 1, reader.Calls())
}

func TestPollCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{}
	m := &metrics.Metrics{}
	r := NewReconciler(reader, WithMetrics(m))

	st := r.Poll(ctx, testBech, 5, 0)
	assert.Equal(t, PollCancelled, st.State)
	assert.Zero(t, reader.Calls())
	assert.Equal(t, int64(1), m.Snapshot().PollsCancelled)
}

func TestPollCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{failures: -1, onCall: cancel}
	r := NewReconciler(reader, WithMetrics(&metrics.Metrics{}))

	st := r.Poll(ctx, testBech, 5, time.Hour)
	assert.Equal(t, PollCancelled, st.State)
	assert.Equal(t, 1, reader.Calls())
}

func TestStartPollDeliversFinalState(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{failures: 1, balance: big.NewInt(3)}
	r := NewReconciler(reader, WithScheduler(&recordingScheduler{}), WithMetrics(&metrics.Metrics{}))

	ch := r.StartPoll(context.Background(), testBech, 5, time.Second)

	select {
	case st := <-ch:
		assert.Equal(t, PollSucceeded, st.State)
		assert.Equal(t, testBech, st.Target)
		assert.Equal(t, 5, st.MaxAttempts)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "poll did not finish")
	}

	_, open := <-ch
	assert.False(t, open)
}

func TestPollStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "polling", PollPolling.String())
	assert.Equal(t, "succeeded", PollSucceeded.String())
	assert.Equal(t, "exhausted", PollExhausted.String())
	assert.Equal(t, "cancelled", PollCancelled.String())
	assert.Equal(t, "unknown", PollStatus(9).String())
}
