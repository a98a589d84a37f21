package realtime

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// sendBuffer is the per-session outbound queue depth. A session that falls
// this far behind starts losing events rather than blocking publishers.
const sendBuffer = 256

// Session is one authenticated websocket connection. A user may hold several
// at once (phone + laptop).
type Session struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

func NewSession(userID uuid.UUID, conn *WebSocketConn) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Hub is the in-process connection registry: which users have live sessions
// right now. It holds no state that survives a restart and is never the
// source of truth for anything.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[string]*Session
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[uuid.UUID]map[string]*Session)}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	if h.sessions[s.UserID] == nil {
		h.sessions[s.UserID] = make(map[string]*Session)
	}
	h.sessions[s.UserID][s.ID] = s
	h.mu.Unlock()
	log.Printf("Session registered: %s (user %s)", s.ID, s.UserID)
}

// Unregister removes the session and closes its send channel exactly once.
// Safe to call for a session that was never registered or already removed.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byUser, ok := h.sessions[s.UserID]
	if !ok {
		return
	}
	old, ok := byUser[s.ID]
	if !ok {
		return
	}
	delete(byUser, s.ID)
	if len(byUser) == 0 {
		delete(h.sessions, s.UserID)
	}
	close(old.Send)
	log.Printf("Session unregistered: %s", s.ID)
}

// SessionsOf returns a snapshot of the user's live sessions. The slice is
// the caller's to keep; the registry may change the moment the lock drops.
func (h *Hub) SessionsOf(userID uuid.UUID) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	byUser := h.sessions[userID]
	out := make([]*Session, 0, len(byUser))
	for _, s := range byUser {
		out = append(out, s)
	}
	return out
}

func (h *Hub) CountFor(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Publish hands payload to every live session of the user and reports how
// many took it. The send is a non-blocking channel handoff: a session with
// a full buffer loses this event but stays registered. Zero sessions is not
// an error. Network writes happen in each session's writer goroutine, never
// under the registry lock.
func (h *Hub) Publish(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, s := range h.sessions[userID] {
		select {
		case s.Send <- payload:
			delivered++
		default:
			log.Printf("Session %s buffer full, dropping event", s.ID)
		}
	}
	return delivered
}
