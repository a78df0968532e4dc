package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/varun4522/calm-sub002/internal/domain"
)

// NATSPublisher emits lightweight per-receiver notification subjects so
// sidecar consumers (push notifications, unread counters) can fan out
// without tailing Kafka.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

type messageCreated struct {
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Preview    string `json:"preview"`
	CreatedAt  string `json:"created_at"`
}

func (p *NATSPublisher) PublishMessageCreated(m domain.Message) error {
	if p == nil || p.nc == nil {
		return nil
	}
	preview := m.Body
	if len(preview) > 100 {
		preview = preview[:100]
	}
	ev := messageCreated{
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Preview:    preview,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
	b, _ := json.Marshal(ev)
	return p.nc.Publish("notify."+m.ReceiverID, b)
}

type threadCleared struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

func (p *NATSPublisher) PublishThreadCleared(userA, userB string) error {
	if p == nil || p.nc == nil {
		return nil
	}
	b, _ := json.Marshal(threadCleared{UserA: userA, UserB: userB})
	if err := p.nc.Publish("notify."+userA, b); err != nil {
		return err
	}
	return p.nc.Publish("notify."+userB, b)
}

func (p *NATSPublisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
