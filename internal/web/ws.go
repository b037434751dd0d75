package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/model"
)

const (
	writeWait   = 5 * time.Second
	sendBacklog = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type pushMessage struct {
	Type     string           `json:"type"`
	GameMode model.GameMode   `json:"gameMode"`
	Team     *engine.TeamView `json:"team"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan pushMessage
}

// hub fans progress updates out to websocket subscribers. A subscriber that falls
// behind by more than sendBacklog messages is dropped.
type hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	logger zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{subs: make(map[*subscriber]struct{}), logger: logger}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

func (h *hub) broadcast(msg pushMessage) {
	h.mu.Lock()
	var slow []*subscriber
	for sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range slow {
		h.logger.Warn().Str("remote", sub.conn.RemoteAddr().String()).Msg("drop slow subscriber")
		h.remove(sub)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		h.remove(sub)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	sub := &subscriber{conn: conn, send: make(chan pushMessage, sendBacklog)}

	if view, err := s.teamView(r.Context(), engine.PolicyAny); err == nil {
		sub.send <- pushMessage{Type: "progress", GameMode: s.mode, Team: view}
	}
	s.hub.add(sub)
	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("subscriber connected")

	go s.readLoop(sub)
	s.writeLoop(sub)
}

// readLoop discards client frames and unsubscribes when the connection closes.
func (s *Server) readLoop(sub *subscriber) {
	defer s.hub.remove(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(msg); err != nil {
			s.logger.Debug().Err(err).Msg("websocket write")
			s.hub.remove(sub)
			break
		}
	}
	_ = sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
