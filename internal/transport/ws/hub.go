package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ahdg6/TypeWriter/internal/action"
)

// sendBuffer is how many frames may queue for a slow client before new
// ones are dropped.
const sendBuffer = 64

// ErrNotConnected is returned by Present when the player has no session.
var ErrNotConnected = errors.New("player not connected")

// session is one player's socket and its outbound queue. Only the writer
// goroutine writes to conn.
type session struct {
	player string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	done   chan struct{}
}

func newSession(player string, conn *websocket.Conn) *session {
	return &session{
		player: player,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// close stops the writer and closes the socket. Safe to call repeatedly.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Hub tracks one session per player and delivers presented messages.
//
// Thread-safety: all methods are safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *slog.Logger
}

// NewHub creates an empty Hub. A nil logger means slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{sessions: make(map[string]*session), logger: logger}
}

// register installs s as the player's session. A previous session for the
// same player is closed; it no longer owns the player.
func (h *Hub) register(s *session) {
	h.mu.Lock()
	old := h.sessions[s.player]
	h.sessions[s.player] = s
	h.mu.Unlock()

	if old != nil {
		h.logger.Info("session replaced", "player", s.player)
		old.close()
	}
}

// unregister removes s if it is still the player's session. Reports
// whether it was, so a replaced session does not disconnect its successor.
func (h *Hub) unregister(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.player] != s {
		return false
	}
	delete(h.sessions, s.player)
	return true
}

// Players returns connected players, sorted.
func (h *Hub) Players() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.sessions))
	for p := range h.sessions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Connected reports whether player has a live session.
func (h *Hub) Connected(player string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[player]
	return ok
}

// Present implements action.Presenter. Frames for a full queue are
// dropped and logged rather than blocking the player's actor.
func (h *Hub) Present(ctx context.Context, player string, msg action.Message) error {
	return h.send(ctx, player, ServerFrame{
		Type:    msg.Kind,
		Speaker: msg.Speaker,
		Text:    msg.Text,
		EntryID: msg.EntryID,
	})
}

func (h *Hub) send(ctx context.Context, player string, frame ServerFrame) error {
	h.mu.RLock()
	s, ok := h.sessions[player]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
	case <-s.done:
		return ErrNotConnected
	default:
		h.logger.WarnContext(ctx, "send queue full, frame dropped", "player", player, "type", frame.Type)
	}
	return nil
}

// closeAll closes every session. Their read loops then disconnect the
// players from the registry.
func (h *Hub) closeAll() {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.close()
	}
}
