package nbio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout_FiresNoEarlierThanDeadline(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err, "new loop")
	defer l.Shutdown()

	start := time.Now()
	var fired time.Time
	l.Timeout(30*time.Millisecond, func(now time.Time) { fired = now })

	deadline := time.Now().Add(2 * time.Second)
	for fired.IsZero() && time.Now().Before(deadline) {
		require.NoError(t, l.Tick(), "tick failed")
	}
	require.False(t, fired.IsZero(), "timer never fired")
	assert.True(t, fired.Sub(start) >= 25*time.Millisecond, "timer fired early: %v", fired.Sub(start))
}

func TestTimerHeap_OrdersByDeadline(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err, "new loop")
	defer l.Shutdown()

	var order []int
	l.Timeout(30*time.Millisecond, func(time.Time) { order = append(order, 3) })
	l.Timeout(10*time.Millisecond, func(time.Time) { order = append(order, 1) })
	l.Timeout(20*time.Millisecond, func(time.Time) { order = append(order, 2) })

	deadline := time.Now().Add(2 * time.Second)
	for len(order) < 3 && time.Now().Before(deadline) {
		require.NoError(t, l.Tick())
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRemove_CancelsBeforeDispatch(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err, "new loop")
	defer l.Shutdown()

	fired := false
	c := l.Timeout(50*time.Millisecond, func(time.Time) { fired = true })
	c.Remove()

	// Drive the loop well past the original deadline; the callback must
	// never run.
	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, l.Tick())
	}
	assert.False(t, fired, "removed completion fired anyway")
}

func TestNextTick_RunsAfterCurrentTick(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err, "new loop")
	defer l.Shutdown()

	var seq []string
	l.NextTick(func() { seq = append(seq, "next") })
	seq = append(seq, "submit")

	require.NoError(t, l.Tick()) // next_tick not yet drained
	assert.Equal(t, []string{"submit"}, seq)

	require.NoError(t, l.Tick()) // drained at start of the following tick
	assert.Equal(t, []string{"submit", "next"}, seq)
}
