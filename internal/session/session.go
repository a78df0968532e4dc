// Package session holds the in-memory view of one open chat thread. Two
// logical writers mutate it: the local optimistic-send path and the live
// feed's merge path. Both go through the same insert-if-absent rule keyed
// by message id, so a message the sender receives back through its own
// subscription is never appended twice.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/varun4522/calm-sub002/internal/domain"
	"github.com/varun4522/calm-sub002/internal/errs"
	"github.com/varun4522/calm-sub002/internal/live"
	"github.com/varun4522/calm-sub002/internal/metrics"
)

// State tracks an optimistic entry through its lifecycle.
type State int

const (
	StateConfirmed State = iota
	StatePending
	StateFailed
)

// Entry is a message plus its optimistic-send state.
type Entry struct {
	domain.Message
	State State
}

// Participant identifies one side of the thread.
type Participant struct {
	ID   string
	Name string
	Role domain.Role
}

// Appender is the remote insert path. The repository satisfies it.
type Appender interface {
	Append(ctx context.Context, m domain.Message) (domain.Message, error)
}

// Thread is the in-memory message list for one open two-party thread.
type Thread struct {
	self  Participant
	peer  Participant
	store Appender

	mu      sync.Mutex
	entries []Entry
	seen    map[string]int // message id -> index into entries
}

func NewThread(self, peer Participant, store Appender) *Thread {
	return &Thread{
		self:  self,
		peer:  peer,
		store: store,
		seen:  make(map[string]int),
	}
}

// Messages returns a snapshot of the visible thread, pending entries
// included, failed ones excluded.
func (t *Thread) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, 0, len(t.entries))
	for _, e := range t.entries {
		if e.State == StateFailed {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

// Merge inserts a confirmed row if its id is not already present. Used by
// the feed handler and by reconcile fetches; idempotent per id.
func (t *Thread) Merge(m domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mergeLocked(m)
}

// MergeAll merges a fetched batch, then re-sorts confirmed rows by creation
// time so a reconcile fetch lands rows in timestamp order.
func (t *Thread) MergeAll(msgs []domain.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for _, m := range msgs {
		if t.mergeLocked(m) {
			added++
		}
	}
	if added > 0 {
		t.sortLocked()
	}
	return added
}

func (t *Thread) mergeLocked(m domain.Message) bool {
	if _, ok := t.seen[m.ID]; ok {
		metrics.DedupHits.Inc()
		return false
	}
	t.seen[m.ID] = len(t.entries)
	t.entries = append(t.entries, Entry{Message: m, State: StateConfirmed})
	return true
}

func (t *Thread) sortLocked() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].CreatedAt.Before(t.entries[j].CreatedAt)
	})
	for i, e := range t.entries {
		t.seen[e.ID] = i
	}
}

// FeedHandler returns the live.Handler that merges feed inserts into the
// thread and forwards each newly merged row to onNew (may be nil).
func (t *Thread) FeedHandler(onNew func(domain.Message)) live.Handler {
	return func(ev live.Event) {
		switch ev.Op {
		case live.OpInsert:
			if t.Merge(ev.Message) && onNew != nil {
				onNew(ev.Message)
			}
		case live.OpDelete:
			t.mu.Lock()
			t.removeLocked(ev.Message.ID)
			t.mu.Unlock()
		}
	}
}

// Send validates, shows the message immediately under a temporary id, then
// performs the remote insert. On success the pending entry is replaced by
// the store's canonical row; on failure it is rolled back and the error
// returned. No ghost entries survive a failed send.
func (t *Thread) Send(ctx context.Context, body string) (domain.Message, error) {
	if body == "" {
		return domain.Message{}, errs.ErrValidation
	}

	pending := domain.Message{
		ID:           "temp_" + uuid.NewString(),
		SenderID:     t.self.ID,
		ReceiverID:   t.peer.ID,
		SenderName:   t.self.Name,
		ReceiverName: t.peer.Name,
		SenderType:   t.self.Role,
		ReceiverType: t.peer.Role,
		Body:         body,
	}
	t.addPending(pending)

	out := pending
	out.ID = ""
	stored, err := t.store.Append(ctx, out)
	if err != nil {
		t.rollback(pending.ID)
		metrics.MessagesFailed.Inc()
		return domain.Message{}, err
	}
	t.confirm(pending.ID, stored)
	metrics.MessagesSent.Inc()
	return stored, nil
}

func (t *Thread) addPending(m domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[m.ID] = len(t.entries)
	t.entries = append(t.entries, Entry{Message: m, State: StatePending})
}

// confirm swaps the temporary entry for the canonical row. If the feed echo
// already merged the canonical id, the temporary entry is simply dropped.
func (t *Thread) confirm(tempID string, stored domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, echoed := t.seen[stored.ID]; echoed {
		t.removeLocked(tempID)
		return
	}
	idx, ok := t.seen[tempID]
	if !ok {
		// Temp entry vanished (thread cleared mid-send); merge the row fresh.
		t.mergeLocked(stored)
		return
	}
	delete(t.seen, tempID)
	t.entries[idx] = Entry{Message: stored, State: StateConfirmed}
	t.seen[stored.ID] = idx
}

func (t *Thread) rollback(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(tempID)
}

func (t *Thread) removeLocked(id string) {
	idx, ok := t.seen[id]
	if !ok {
		return
	}
	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	delete(t.seen, id)
	for i := idx; i < len(t.entries); i++ {
		t.seen[t.entries[i].ID] = i
	}
}

// Clear empties the in-memory view after a thread deletion.
func (t *Thread) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.seen = make(map[string]int)
}
