package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/varun4522/calm-sub002/internal/domain"
)

var ErrNotFound = errors.New("not found")

// MessageRepository stores chat messages in a single Mongo collection.
// Every call is a remote round-trip; no local cache is authoritative.
type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(coll *mongo.Collection) *MessageRepository {
	ix := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("sender_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("receiver_created_idx"),
		},
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), ix)
	return &MessageRepository{coll: coll}
}

func threadFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
}

// FetchThread returns every message exchanged between the pair, ordered by
// created_at ascending. No rows is an empty slice, not an error.
func (r *MessageRepository) FetchThread(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, threadFilter(userA, userB), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

// FetchByUser returns every message sent or received by userID, ordered by
// created_at ascending. Feeds the conversation aggregator.
func (r *MessageRepository) FetchByUser(ctx context.Context, userID string) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

// Append inserts a message. The store assigns the id and timestamp when the
// caller left them unset, and the canonical stored row is returned. Nothing
// is mutated on failure.
func (r *MessageRepository) Append(ctx context.Context, m domain.Message) (domain.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"_id": m.ID}
	update := bson.M{"$setOnInsert": m}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return domain.Message{}, err
	}
	// Read back the canonical row: a replayed id returns the original insert.
	var stored domain.Message
	if err := r.coll.FindOne(ctx, filter).Decode(&stored); err != nil {
		return domain.Message{}, err
	}
	return stored, nil
}

// DeleteThread removes every row for the unordered pair. Repeating the call
// when no rows remain is a no-op, not an error.
func (r *MessageRepository) DeleteThread(ctx context.Context, userA, userB string) error {
	_, err := r.coll.DeleteMany(ctx, threadFilter(userA, userB))
	return err
}

// FetchMessage returns one row by id.
func (r *MessageRepository) FetchMessage(ctx context.Context, id string) (domain.Message, error) {
	var m domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Message{}, ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}

// DeleteMessage removes a single row by id. Unknown ids are a no-op.
func (r *MessageRepository) DeleteMessage(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// MarkRead flips the read flag on one message.
func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestFrom returns the newest message authored by senderID. Feeds the
// presence estimator.
func (r *MessageRepository) LatestFrom(ctx context.Context, senderID string) (domain.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var m domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"sender_id": senderID}, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Message{}, ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Message, error) {
	out := []domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
