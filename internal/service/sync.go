// Package service coordinates the message store, the live change feed and
// the event fan-out. Repository failures propagate to the caller; fan-out
// failures are logged and never fail the write, since subscribers reconcile
// by re-fetching.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/conversation"
	"github.com/varun4522/calm-sub002/internal/domain"
	"github.com/varun4522/calm-sub002/internal/errs"
	"github.com/varun4522/calm-sub002/internal/live"
	"github.com/varun4522/calm-sub002/internal/metrics"
	"github.com/varun4522/calm-sub002/internal/presence"
	"github.com/varun4522/calm-sub002/internal/repository"
)

// Store is the repository surface the service needs.
type Store interface {
	FetchThread(ctx context.Context, userA, userB string) ([]domain.Message, error)
	FetchByUser(ctx context.Context, userID string) ([]domain.Message, error)
	Append(ctx context.Context, m domain.Message) (domain.Message, error)
	DeleteThread(ctx context.Context, userA, userB string) error
	FetchMessage(ctx context.Context, id string) (domain.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string) error
	LatestFrom(ctx context.Context, senderID string) (domain.Message, error)
}

// Publisher is the optional Kafka fan-out.
type Publisher interface {
	PublishCreated(ctx context.Context, m domain.Message) error
}

// Notifier is the optional NATS fan-out.
type Notifier interface {
	PublishMessageCreated(m domain.Message) error
	PublishThreadCleared(userA, userB string) error
}

type SyncService struct {
	store    Store
	feed     live.Feed
	producer Publisher
	notifier Notifier
	log      *zap.SugaredLogger

	mu         sync.Mutex
	estimators map[string]*presence.Estimator
}

func NewSyncService(store Store, feed live.Feed, producer Publisher, notifier Notifier, log *zap.SugaredLogger) *SyncService {
	return &SyncService{
		store:      store,
		feed:       feed,
		producer:   producer,
		notifier:   notifier,
		log:        log,
		estimators: make(map[string]*presence.Estimator),
	}
}

// Send validates and appends one message, then fans the stored row out to
// the live feed and the notification pipelines.
func (s *SyncService) Send(ctx context.Context, m domain.Message) (domain.Message, error) {
	if m.Body == "" || m.SenderID == "" || m.ReceiverID == "" {
		return domain.Message{}, errs.ErrValidation
	}
	if _, ok := domain.ParseRole(string(m.SenderType)); !ok {
		return domain.Message{}, fmt.Errorf("%w: sender type %q", errs.ErrValidation, m.SenderType)
	}
	if _, ok := domain.ParseRole(string(m.ReceiverType)); !ok {
		return domain.Message{}, fmt.Errorf("%w: receiver type %q", errs.ErrValidation, m.ReceiverType)
	}

	stored, err := s.store.Append(ctx, m)
	if err != nil {
		metrics.MessagesFailed.Inc()
		return domain.Message{}, err
	}
	metrics.MessagesSent.Inc()

	s.estimatorFor(stored.SenderID).Observe(stored.CreatedAt)

	if err := s.feed.Publish(ctx, live.Event{Op: live.OpInsert, Message: stored}); err != nil {
		s.log.Warnw("feed publish failed", "message_id", stored.ID, "err", err)
	}
	if s.producer != nil {
		if err := s.producer.PublishCreated(ctx, stored); err != nil {
			s.log.Warnw("kafka publish failed", "message_id", stored.ID, "err", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PublishMessageCreated(stored); err != nil {
			s.log.Warnw("nats publish failed", "message_id", stored.ID, "err", err)
		}
	}
	return stored, nil
}

// Thread returns the full ordered thread between two users.
func (s *SyncService) Thread(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return s.store.FetchThread(ctx, userA, userB)
}

// Conversations returns the latest-message-per-counterpart view for a user.
func (s *SyncService) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	msgs, err := s.store.FetchByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return conversation.Aggregate(msgs, userID), nil
}

// ClearThread deletes every row for the pair and announces the deletions so
// open sessions drop the rows. Idempotent.
func (s *SyncService) ClearThread(ctx context.Context, userA, userB string) error {
	msgs, err := s.store.FetchThread(ctx, userA, userB)
	if err != nil {
		return err
	}
	if err := s.store.DeleteThread(ctx, userA, userB); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := s.feed.Publish(ctx, live.Event{Op: live.OpDelete, Message: m}); err != nil {
			s.log.Warnw("feed publish failed", "message_id", m.ID, "err", err)
		}
	}
	if s.notifier != nil && len(msgs) > 0 {
		if err := s.notifier.PublishThreadCleared(userA, userB); err != nil {
			s.log.Warnw("nats publish failed", "err", err)
		}
	}
	return nil
}

// DeleteMessage removes a single message on behalf of requesterID, who must
// be a participant. The deletion is announced on the feed so open sessions
// drop the row.
func (s *SyncService) DeleteMessage(ctx context.Context, id, requesterID string) error {
	m, err := s.store.FetchMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.SenderID != requesterID && m.ReceiverID != requesterID {
		return errs.ErrUnauthorized
	}
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return err
	}
	if err := s.feed.Publish(ctx, live.Event{Op: live.OpDelete, Message: m}); err != nil {
		s.log.Warnw("feed publish failed", "message_id", m.ID, "err", err)
	}
	return nil
}

// MarkRead flips the read flag on one message.
func (s *SyncService) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkRead(ctx, id)
}

// Presence estimates a user's online state from their newest message. The
// answer is approximate; see the presence package.
func (s *SyncService) Presence(ctx context.Context, userID string) (presence.Status, error) {
	est := s.estimatorFor(userID)
	m, err := s.store.LatestFrom(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return est.Status(), nil
		}
		return presence.Status{}, err
	}
	est.Observe(m.CreatedAt)
	return est.Status(), nil
}

func (s *SyncService) estimatorFor(userID string) *presence.Estimator {
	s.mu.Lock()
	defer s.mu.Unlock()
	est, ok := s.estimators[userID]
	if !ok {
		est = presence.NewEstimator()
		s.estimators[userID] = est
	}
	return est
}
