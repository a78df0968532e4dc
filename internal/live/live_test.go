package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/domain"
)

func event(id, sender, receiver string) Event {
	return Event{Op: OpInsert, Message: domain.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		CreatedAt:  time.Now().UTC(),
	}}
}

func TestFilterChannel(t *testing.T) {
	pair := Filter{UserA: "u2", UserB: "u1"}
	// Pair order does not matter.
	assert.Equal(t, Filter{UserA: "u1", UserB: "u2"}.Channel("p"), pair.Channel("p"))
	assert.Equal(t, "p:feed:user:u1", Filter{UserA: "u1"}.Channel("p"))
}

func TestFilterMatches(t *testing.T) {
	pair := Filter{UserA: "u1", UserB: "u2"}
	assert.True(t, pair.Matches(event("m", "u1", "u2").Message))
	assert.True(t, pair.Matches(event("m", "u2", "u1").Message))
	assert.False(t, pair.Matches(event("m", "u1", "u3").Message))

	oneSided := Filter{UserA: "u1"}
	assert.True(t, oneSided.Matches(event("m", "u3", "u1").Message))
	assert.False(t, oneSided.Matches(event("m", "u3", "u2").Message))
}

func TestMemoryFeedDeliversMatchingEvents(t *testing.T) {
	feed := NewMemoryFeed()
	var mu sync.Mutex
	var got []string
	sub, err := feed.Subscribe(context.Background(), Filter{UserA: "u1", UserB: "u2"}, func(ev Event) {
		mu.Lock()
		got = append(got, ev.Message.ID)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, feed.Publish(context.Background(), event("m1", "u1", "u2")))
	require.NoError(t, feed.Publish(context.Background(), event("m2", "u3", "u4")))
	require.NoError(t, feed.Publish(context.Background(), event("m3", "u2", "u1")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"m1", "m3"}, got)
}

func TestSubscriptionCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	feed := NewMemoryFeed()
	calls := 0
	sub, err := feed.Subscribe(context.Background(), Filter{UserA: "u1", UserB: "u2"}, func(Event) {
		calls++
	})
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), event("m1", "u1", "u2")))
	sub.Cancel()
	sub.Cancel() // second cancel is a no-op
	require.NoError(t, feed.Publish(context.Background(), event("m2", "u1", "u2")))

	assert.Equal(t, 1, calls)
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Cancel")
	}
}

func TestSupervisorResubscribesAfterDrop(t *testing.T) {
	feed := NewMemoryFeed()
	log := zap.NewNop().Sugar()

	var mu sync.Mutex
	var got []string
	reconciles := 0

	sup := NewSupervisor(feed, Filter{UserA: "u1", UserB: "u2"}, func(ev Event) {
		mu.Lock()
		got = append(got, ev.Message.ID)
		mu.Unlock()
	}, log,
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithReconcile(func(context.Context) error {
			mu.Lock()
			reconciles++
			mu.Unlock()
			return nil
		}),
	)
	sup.Start(context.Background())
	defer sup.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reconciles == 1
	})
	require.NoError(t, feed.Publish(context.Background(), event("m1", "u1", "u2")))

	feed.Drop()

	// After the drop the supervisor re-subscribes, reconciles again, and
	// keeps delivering.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reconciles >= 2
	})
	require.NoError(t, feed.Publish(context.Background(), event("m2", "u1", "u2")))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	mu.Lock()
	assert.Equal(t, []string{"m1", "m2"}, got)
	mu.Unlock()
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	feed := NewMemoryFeed()
	sup := NewSupervisor(feed, Filter{UserA: "u1"}, func(Event) {}, zap.NewNop().Sugar())
	sup.Start(context.Background())
	sup.Stop()
	sup.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
