package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/edupulse/arena/internal/duel"
)

// Hub tracks the live connection per user and is the duel layer's Messenger.
// Sends to users without a connection (synthetic opponents, just-dropped
// players) are dropped silently; the server's state is authoritative either
// way.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

// Send implements duel.Messenger.
func (h *Hub) Send(userID string, out duel.Outbound) {
	h.mu.RLock()
	c := h.conns[userID]
	h.mu.RUnlock()

	if c == nil {
		return
	}

	b, err := json.Marshal(out)
	if err != nil {
		slog.Error("hub: marshal outbound", "type", out.Type, "error", err)
		return
	}

	c.enqueue(b)
}

// add registers a connection, superseding any previous connection for the
// same user. The superseded connection is closed without game-side effects;
// the new connection now owns the user's session.
func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	old := h.conns[c.identity.UserID]
	h.conns[c.identity.UserID] = c
	h.mu.Unlock()

	if old != nil {
		old.supersede()
	}
}

// remove unregisters a connection if it is still the user's current one.
func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.identity.UserID] == c {
		delete(h.conns, c.identity.UserID)
	}
}

// Connected reports the number of live connections, for telemetry.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}
