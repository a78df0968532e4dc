package conversation

import (
	"sort"

	"github.com/varun4522/calm-sub002/internal/domain"
)

// Aggregate reduces a user's flat message list into one entry per distinct
// counterpart, keeping the latest message for each and sorting by recency.
// Pure function, no I/O.
//
// A later message replaces the held one only when its timestamp is strictly
// greater, so on an exact timestamp tie the first-seen message wins.
func Aggregate(messages []domain.Message, selfID string) []domain.Conversation {
	latest := make(map[string]domain.Message)
	counts := make(map[string]int)
	unread := make(map[string]bool)

	for _, m := range messages {
		other := m.Counterpart(selfID)
		counts[other]++
		if m.ReceiverID == selfID && !m.IsRead {
			unread[other] = true
		}
		held, ok := latest[other]
		if !ok || m.CreatedAt.After(held.CreatedAt) {
			latest[other] = m
		}
	}

	out := make([]domain.Conversation, 0, len(latest))
	for other, m := range latest {
		out = append(out, domain.Conversation{
			CounterpartID:   other,
			CounterpartName: m.CounterpartName(selfID),
			CounterpartType: m.CounterpartRole(selfID),
			LatestMessage:   m.Body,
			LatestTimestamp: m.CreatedAt,
			MessageCount:    counts[other],
			IsRead:          !unread[other],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LatestTimestamp.After(out[j].LatestTimestamp)
	})
	return out
}
