package live

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/metrics"
)

// RedisFeed carries change events over Redis pub/sub channels so every
// instance observes inserts regardless of which one performed them.
// Pub/sub delivers only while the subscription is open; missed rows are
// reconciled by the Supervisor's replay fetch.
type RedisFeed struct {
	client *redis.Client
	prefix string
	log    *zap.SugaredLogger
}

func NewRedisFeed(client *redis.Client, prefix string, log *zap.SugaredLogger) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix, log: log}
}

// Publish announces one row change on the thread channel and on both
// participants' one-sided channels.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	m := ev.Message
	channels := []string{
		Filter{UserA: m.SenderID, UserB: m.ReceiverID}.Channel(f.prefix),
		Filter{UserA: m.SenderID}.Channel(f.prefix),
	}
	if m.ReceiverID != m.SenderID {
		channels = append(channels, Filter{UserA: m.ReceiverID}.Channel(f.prefix))
	}
	for _, ch := range channels {
		if err := f.client.Publish(ctx, ch, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe opens exactly one pub/sub subscription for the filter's channel
// and pumps events to the handler until cancelled or the connection drops.
func (f *RedisFeed) Subscribe(ctx context.Context, filter Filter, h Handler) (*Subscription, error) {
	ps := f.client.Subscribe(ctx, filter.Channel(f.prefix))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := newSubscription(func() { _ = ps.Close() })
	go func() {
		defer sub.finish()
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.Warnw("feed payload decode failed", "channel", msg.Channel, "err", err)
				continue
			}
			metrics.FeedEvents.WithLabelValues(string(ev.Op)).Inc()
			sub.invoke(h, ev)
		}
	}()
	return sub, nil
}
