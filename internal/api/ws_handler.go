package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/websocket/v2"

	"github.com/varun4522/calm-sub002/internal/domain"
	"github.com/varun4522/calm-sub002/internal/live"
	wsint "github.com/varun4522/calm-sub002/internal/ws"
)

type wsFrame struct {
	Type     string           `json:"type"`
	Event    *live.Event      `json:"event,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
}

// liveSocket bridges one websocket onto the change feed. With ?peer=<id>
// the socket follows that thread; without it, the caller's one-sided
// notification feed. The subscription is supervised, so a dropped feed is
// re-established and missed rows replayed as a fresh snapshot.
func (s *Server) liveSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	if userID == "" {
		_ = conn.Close()
		return
	}
	peer := conn.Query("peer")

	client := wsint.NewClient(userID, conn)
	s.hub.AddClient(client)
	defer s.hub.RemoveClient(client)

	filter := live.Filter{UserA: userID, UserB: peer}

	handler := func(ev live.Event) {
		payload, err := json.Marshal(wsFrame{Type: "event", Event: &ev})
		if err != nil {
			return
		}
		client.Send(payload)
	}

	opts := []live.SupervisorOption{}
	if peer != "" {
		opts = append(opts, live.WithReconcile(func(ctx context.Context) error {
			msgs, err := s.svc.Thread(ctx, userID, peer)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(wsFrame{Type: "snapshot", Messages: msgs})
			if err != nil {
				return err
			}
			client.Send(payload)
			return nil
		}))
	}

	sup := live.NewSupervisor(s.feed, filter, handler, s.log, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)
	defer sup.Stop()

	go client.WritePump()
	client.ReadPump()
}
