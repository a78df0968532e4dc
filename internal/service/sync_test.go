package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/domain"
	"github.com/varun4522/calm-sub002/internal/errs"
	"github.com/varun4522/calm-sub002/internal/live"
	"github.com/varun4522/calm-sub002/internal/repository"
)

// memStore is an in-memory Store with repository semantics.
type memStore struct {
	rows   []domain.Message
	nextID int
}

func (s *memStore) FetchThread(_ context.Context, a, b string) ([]domain.Message, error) {
	out := []domain.Message{}
	for _, m := range s.rows {
		if m.InThread(a, b) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) FetchByUser(_ context.Context, userID string) ([]domain.Message, error) {
	out := []domain.Message{}
	for _, m := range s.rows {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) Append(_ context.Context, m domain.Message) (domain.Message, error) {
	s.nextID++
	m.ID = fmt.Sprintf("srv-%d", s.nextID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, m)
	return m, nil
}

func (s *memStore) DeleteThread(_ context.Context, a, b string) error {
	kept := s.rows[:0]
	for _, m := range s.rows {
		if !m.InThread(a, b) {
			kept = append(kept, m)
		}
	}
	s.rows = kept
	return nil
}

func (s *memStore) FetchMessage(_ context.Context, id string) (domain.Message, error) {
	for _, m := range s.rows {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, repository.ErrNotFound
}

func (s *memStore) DeleteMessage(_ context.Context, id string) error {
	kept := s.rows[:0]
	for _, m := range s.rows {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	s.rows = kept
	return nil
}

func (s *memStore) MarkRead(_ context.Context, id string) error {
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) LatestFrom(_ context.Context, senderID string) (domain.Message, error) {
	var latest domain.Message
	found := false
	for _, m := range s.rows {
		if m.SenderID == senderID && (!found || m.CreatedAt.After(latest.CreatedAt)) {
			latest = m
			found = true
		}
	}
	if !found {
		return domain.Message{}, repository.ErrNotFound
	}
	return latest, nil
}

func validMessage(sender, receiver, body string) domain.Message {
	return domain.Message{
		SenderID:     sender,
		ReceiverID:   receiver,
		SenderName:   "name-" + sender,
		ReceiverName: "name-" + receiver,
		SenderType:   domain.RoleStudent,
		ReceiverType: domain.RolePeer,
		Body:         body,
	}
}

func newTestService() (*SyncService, *memStore, *live.MemoryFeed) {
	store := &memStore{}
	feed := live.NewMemoryFeed()
	svc := NewSyncService(store, feed, nil, nil, zap.NewNop().Sugar())
	return svc, store, feed
}

func TestSendRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, validMessage("u1", "u2", ""))
	assert.ErrorIs(t, err, errs.ErrValidation)

	bad := validMessage("u1", "u2", "hi")
	bad.SenderType = "ROBOT"
	_, err = svc.Send(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSendPublishesInsertToFeed(t *testing.T) {
	svc, _, feed := newTestService()
	ctx := context.Background()

	var got []live.Event
	sub, err := feed.Subscribe(ctx, live.Filter{UserA: "u1", UserB: "u2"}, func(ev live.Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	stored, err := svc.Send(ctx, validMessage("u1", "u2", "hello"))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, live.OpInsert, got[0].Op)
	assert.Equal(t, stored.ID, got[0].Message.ID)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestClearThreadDeletesAndAnnounces(t *testing.T) {
	svc, store, feed := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, validMessage("u1", "u2", "one"))
	require.NoError(t, err)
	_, err = svc.Send(ctx, validMessage("u2", "u1", "two"))
	require.NoError(t, err)
	_, err = svc.Send(ctx, validMessage("u1", "u3", "other thread"))
	require.NoError(t, err)

	var deletes []string
	sub, err := feed.Subscribe(ctx, live.Filter{UserA: "u1", UserB: "u2"}, func(ev live.Event) {
		if ev.Op == live.OpDelete {
			deletes = append(deletes, ev.Message.ID)
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, svc.ClearThread(ctx, "u1", "u2"))
	assert.Len(t, deletes, 2)

	left, err := svc.Thread(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Empty(t, left)

	// Unrelated thread untouched.
	other, err := svc.Thread(ctx, "u1", "u3")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	// Second clear on an empty thread is a no-op, not an error.
	require.NoError(t, svc.ClearThread(ctx, "u1", "u2"))
	assert.Len(t, store.rows, 1)
}

func TestConversationsAggregatesPerCounterpart(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, validMessage("u1", "u2", "to u2"))
	require.NoError(t, err)
	_, err = svc.Send(ctx, validMessage("u3", "u1", "from u3"))
	require.NoError(t, err)

	convs, err := svc.Conversations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, convs, 2)
}

func TestPresenceFromLatestMessage(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	// No messages at all: offline with no label.
	st, err := svc.Presence(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.Empty(t, st.LastSeen)

	// Fresh message: online.
	_, err = svc.Send(ctx, validMessage("u2", "u1", "hi"))
	require.NoError(t, err)
	st, err = svc.Presence(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, st.Online)

	// Stale message: offline with a last-seen label.
	store.rows[0].CreatedAt = time.Now().UTC().Add(-10 * time.Minute)
	svc2 := NewSyncService(store, live.NewMemoryFeed(), nil, nil, zap.NewNop().Sugar())
	st, err = svc2.Presence(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.NotEmpty(t, st.LastSeen)
}

func TestDeleteMessage(t *testing.T) {
	svc, store, feed := newTestService()
	ctx := context.Background()

	stored, err := svc.Send(ctx, validMessage("u1", "u2", "hi"))
	require.NoError(t, err)

	var deletes []string
	sub, err := feed.Subscribe(ctx, live.Filter{UserA: "u1", UserB: "u2"}, func(ev live.Event) {
		if ev.Op == live.OpDelete {
			deletes = append(deletes, ev.Message.ID)
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// A third party cannot delete the row.
	assert.ErrorIs(t, svc.DeleteMessage(ctx, stored.ID, "u3"), errs.ErrUnauthorized)
	assert.Len(t, store.rows, 1)

	require.NoError(t, svc.DeleteMessage(ctx, stored.ID, "u1"))
	assert.Empty(t, store.rows)
	assert.Equal(t, []string{stored.ID}, deletes)

	assert.ErrorIs(t, svc.DeleteMessage(ctx, stored.ID, "u1"), repository.ErrNotFound)
}

func TestMarkRead(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	stored, err := svc.Send(ctx, validMessage("u1", "u2", "hi"))
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, stored.ID))
	assert.True(t, store.rows[0].IsRead)

	assert.ErrorIs(t, svc.MarkRead(ctx, "missing"), repository.ErrNotFound)
}
