package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/domain"
)

// Producer writes message-created events to Kafka for the durable,
// notification-style one-sided feed.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

func (p *Producer) PublishCreated(ctx context.Context, m domain.Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(domain.ThreadKey(m.SenderID, m.ReceiverID)),
		Value: value,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.writer.Close() }

// Notifier receives the rows read back off the topic. The ws hub satisfies
// it to push new-message notices to a receiver's open sockets.
type Notifier interface {
	NotifyUser(userID string, payload []byte)
}

// Consumer tails the message-created topic and notifies receivers.
type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: r, log: log}
}

func (c *Consumer) Run(ctx context.Context, n Notifier) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Errorw("kafka read", "err", err)
			time.Sleep(time.Second)
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Warnw("kafka payload decode failed", "err", err)
			continue
		}
		n.NotifyUser(msg.ReceiverID, m.Value)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
