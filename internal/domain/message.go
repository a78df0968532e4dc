package domain

import (
	"strings"
	"time"
)

// Role identifies which side of the platform a participant belongs to.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleExpert  Role = "EXPERT"
	RolePeer    Role = "PEER"
	RoleAdmin   Role = "ADMIN"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(s)) {
	case RoleStudent, RoleExpert, RolePeer, RoleAdmin:
		return Role(strings.ToUpper(s)), true
	}
	return "", false
}

// Message is one chat message between two participants. Rows are immutable
// after insert except for the read flag.
type Message struct {
	ID           string    `bson:"_id" json:"id"`
	SenderID     string    `bson:"sender_id" json:"sender_id"`
	ReceiverID   string    `bson:"receiver_id" json:"receiver_id"`
	SenderName   string    `bson:"sender_name" json:"sender_name"`
	ReceiverName string    `bson:"receiver_name" json:"receiver_name"`
	SenderType   Role      `bson:"sender_type" json:"sender_type"`
	ReceiverType Role      `bson:"receiver_type" json:"receiver_type"`
	Body         string    `bson:"message" json:"message"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	IsRead       bool      `bson:"is_read" json:"is_read,omitempty"`
}

// Counterpart returns the other participant's id relative to selfID.
// A self-message maps to selfID.
func (m Message) Counterpart(selfID string) string {
	if m.SenderID != selfID {
		return m.SenderID
	}
	return m.ReceiverID
}

// CounterpartName returns the display name paired with Counterpart.
func (m Message) CounterpartName(selfID string) string {
	if m.SenderID != selfID {
		return m.SenderName
	}
	return m.ReceiverName
}

// CounterpartRole returns the role paired with Counterpart.
func (m Message) CounterpartRole(selfID string) Role {
	if m.SenderID != selfID {
		return m.SenderType
	}
	return m.ReceiverType
}

// InThread reports whether the message belongs to the unordered pair (a, b).
func (m Message) InThread(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Conversation is the derived latest-message-per-counterpart view used to
// render a conversation list. It is never persisted.
type Conversation struct {
	CounterpartID   string    `json:"counterpart_id"`
	CounterpartName string    `json:"counterpart_name"`
	CounterpartType Role      `json:"counterpart_type"`
	LatestMessage   string    `json:"latest_message"`
	LatestTimestamp time.Time `json:"latest_timestamp"`
	MessageCount    int       `json:"message_count"`
	IsRead          bool      `json:"is_read"`
}

// ThreadKey is a canonical identifier for the unordered participant pair,
// usable as a pub/sub channel suffix and a room name.
func ThreadKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
