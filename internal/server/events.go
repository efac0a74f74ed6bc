package server

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MockingJay1710/buddyai/internal/bus"
)

// wireEvent is the JSON shape pushed to /events subscribers.
type wireEvent struct {
	Topic   string `json:"topic"`
	At      string `json:"at"`
	Payload any    `json:"payload"`
}

// handleEvents streams bus events to a WebSocket client. The optional
// "topic" query parameter filters by topic prefix, e.g. ?topic=reminder.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Bus == nil {
		writeError(w, http.StatusNotImplemented, "event streaming unavailable")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	topic := r.URL.Query().Get("topic")
	sub := s.cfg.Bus.Subscribe(topic)
	defer s.cfg.Bus.Unsubscribe(sub)

	s.cfg.Logger.Info("events: client connected", "topic", topic)
	defer s.cfg.Logger.Info("events: client disconnected")

	// CloseRead keeps processing inbound frames so a client close frame
	// cancels the context instead of leaving the subscription behind.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Ch():
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, toWire(ev)); err != nil {
				return
			}
		}
	}
}

func toWire(ev bus.Event) wireEvent {
	return wireEvent{
		Topic:   ev.Topic,
		At:      ev.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload: ev.Payload,
	}
}
