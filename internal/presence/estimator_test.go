package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimers captures decay callbacks so tests fire them deterministically.
type fakeTimers struct {
	fns []func()
}

func (f *fakeTimers) after(_ time.Duration, fn func()) *time.Timer {
	f.fns = append(f.fns, fn)
	// Inert timer; Stop on it is harmless.
	return time.NewTimer(time.Hour)
}

func (f *fakeTimers) fireLast() {
	if len(f.fns) > 0 {
		f.fns[len(f.fns)-1]()
	}
}

func newFakeEstimator(now time.Time) (*Estimator, *time.Time, *fakeTimers) {
	clock := now
	ft := &fakeTimers{}
	e := NewEstimator(WithClock(func() time.Time { return clock }))
	e.after = ft.after
	return e, &clock, ft
}

func TestRecentMessageReportsOnline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, _, _ := newFakeEstimator(now)

	e.Observe(now.Add(-30 * time.Second))
	st := e.Status()
	assert.True(t, st.Online)
	assert.Empty(t, st.LastSeen)
}

func TestStaleMessageReportsOfflineWithLabel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, _, _ := newFakeEstimator(now)

	e.Observe(now.Add(-5 * time.Minute))
	st := e.Status()
	assert.False(t, st.Online)
	assert.Equal(t, "5m ago", st.LastSeen)
}

func TestDecayFlipsToOfflineAfterTimer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, clock, ft := newFakeEstimator(now)

	e.Observe(now)
	require.True(t, e.Status().Online)

	*clock = now.Add(DecayAfter)
	ft.fireLast()

	st := e.Status()
	assert.False(t, st.Online)
	assert.NotEmpty(t, st.LastSeen)
}

func TestNewerObservationSupersedesDecayTimer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, clock, ft := newFakeEstimator(now)

	e.Observe(now)
	stale := ft.fns[0]

	// A newer message arrives before the first timer fires.
	*clock = now.Add(45 * time.Second)
	e.Observe(*clock)

	stale() // superseded timer must be a no-op
	assert.True(t, e.Status().Online)
}

func TestOnChangeFiresOnFlips(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var flips []bool
	ft := &fakeTimers{}
	clock := now
	e := NewEstimator(
		WithClock(func() time.Time { return clock }),
		WithOnChange(func(st Status) { flips = append(flips, st.Online) }),
	)
	e.after = ft.after

	e.Observe(now)
	clock = now.Add(DecayAfter)
	ft.fireLast()

	assert.Equal(t, []bool{true, false}, flips)
}

func TestStatusBeforeAnyObservation(t *testing.T) {
	e := NewEstimator()
	st := e.Status()
	assert.False(t, st.Online)
	assert.Empty(t, st.LastSeen)
}

func TestLastSeenLabelBuckets(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", LastSeenLabel(now.Add(-20*time.Second), now))
	assert.Equal(t, "12m ago", LastSeenLabel(now.Add(-12*time.Minute), now))
	assert.Equal(t, "3h ago", LastSeenLabel(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", LastSeenLabel(now.Add(-48*time.Hour), now))
	assert.Equal(t, "Mar 1", LastSeenLabel(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "Dec 25, 2025", LastSeenLabel(time.Date(2025, 12, 25, 8, 0, 0, 0, time.UTC), now))
}
