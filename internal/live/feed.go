package live

import (
	"context"
	"sync"

	"github.com/varun4522/calm-sub002/internal/domain"
)

// Op is the row-level change type carried by a feed event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is one row-level change pushed to subscribers.
type Event struct {
	Op      Op             `json:"op"`
	Message domain.Message `json:"message"`
}

// Filter scopes a subscription to either the unordered participant pair
// (two-sided thread feed) or a single user id (one-sided notification feed,
// UserB left empty).
type Filter struct {
	UserA string
	UserB string
}

// Channel maps the filter onto a pub/sub channel name.
func (f Filter) Channel(prefix string) string {
	if f.UserB == "" {
		return prefix + ":feed:user:" + f.UserA
	}
	return prefix + ":feed:thread:" + domain.ThreadKey(f.UserA, f.UserB)
}

// Matches reports whether a message falls inside the filter.
func (f Filter) Matches(m domain.Message) bool {
	if f.UserB == "" {
		return m.SenderID == f.UserA || m.ReceiverID == f.UserA
	}
	return m.InThread(f.UserA, f.UserB)
}

// Handler receives feed events. Delivery is at-least-once in receipt order;
// handlers must de-duplicate by message id before merging.
type Handler func(Event)

// Feed is a change-notification mechanism: publishers announce row changes,
// subscribers receive every change matching their filter while active.
type Feed interface {
	Subscribe(ctx context.Context, f Filter, h Handler) (*Subscription, error)
	Publish(ctx context.Context, ev Event) error
}

// Subscription is the cancellation handle returned by Subscribe.
type Subscription struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	once   sync.Once
	stop   func()
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{done: make(chan struct{}), stop: stop}
}

// invoke runs the handler unless the subscription has been cancelled. The
// lock guarantees no handler call starts after Cancel returns.
func (s *Subscription) invoke(h Handler, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	h(ev)
}

// Cancel unsubscribes. Safe to call multiple times; no handler invocations
// occur after it returns.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Done is closed when the subscription stops delivering, whether by Cancel
// or because the underlying feed dropped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// finish marks the delivery loop as over. Idempotent with Cancel's close.
func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
