// Package presence infers a counterpart's online state from the recency of
// their most recent message. This is a heuristic, not a presence protocol:
// a connected but silent counterpart reads as offline after the window
// passes. Treat the result as approximate, never authoritative.
package presence

import (
	"fmt"
	"sync"
	"time"
)

const (
	// OnlineWindow: a message younger than this marks the author online.
	OnlineWindow = 60 * time.Second
	// DecayAfter: how long after an observation the state flips back to
	// offline when nothing newer arrives.
	DecayAfter = 90 * time.Second
)

// Status is the estimator's current answer.
type Status struct {
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen,omitempty"`
}

// Estimator tracks one counterpart. Observe it with every message timestamp
// from that counterpart; read Status whenever the UI needs it.
type Estimator struct {
	mu     sync.Mutex
	online bool
	lastAt time.Time
	gen    int

	now   func() time.Time
	after func(time.Duration, func()) *time.Timer
	timer *time.Timer

	onChange func(Status)
}

type Option func(*Estimator)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// WithOnChange registers a callback fired on every online/offline flip.
func WithOnChange(fn func(Status)) Option {
	return func(e *Estimator) { e.onChange = fn }
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		now:   time.Now,
		after: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe feeds the timestamp of the counterpart's newest known message.
// A fresh timestamp marks them online and arms a one-shot decay timer; a
// stale one reports offline with a last-seen label immediately.
func (e *Estimator) Observe(lastMessageAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lastMessageAt.After(e.lastAt) {
		e.lastAt = lastMessageAt
	}
	e.gen++
	gen := e.gen

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if e.now().Sub(lastMessageAt) <= OnlineWindow {
		changed := !e.online
		e.online = true
		e.timer = e.after(DecayAfter, func() { e.decay(gen) })
		if changed {
			e.notifyLocked()
		}
		return
	}
	changed := e.online
	e.online = false
	if changed {
		e.notifyLocked()
	}
}

// decay flips to offline unless a newer observation superseded this timer.
func (e *Estimator) decay(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || !e.online {
		return
	}
	e.online = false
	e.timer = nil
	e.notifyLocked()
}

// Status returns the current estimate. LastSeen is empty while online and a
// formatted label once offline (nil-equivalent when nothing was observed).
func (e *Estimator) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Estimator) statusLocked() Status {
	if e.online {
		return Status{Online: true}
	}
	if e.lastAt.IsZero() {
		return Status{}
	}
	return Status{Online: false, LastSeen: LastSeenLabel(e.lastAt, e.now())}
}

func (e *Estimator) notifyLocked() {
	if e.onChange != nil {
		e.onChange(e.statusLocked())
	}
}

// Stop cancels any armed decay timer.
func (e *Estimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// LastSeenLabel renders a timestamp the way the conversation list does:
// relative for the first week, a date afterwards.
func LastSeenLabel(ts, now time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	if ts.Year() != now.Year() {
		return ts.Format("Jan 2, 2006")
	}
	return ts.Format("Jan 2")
}
