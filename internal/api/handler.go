// Package api exposes the Battle Arena websocket endpoint: identity-gated
// upgrades, inbound message dispatch and outbound delivery.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/edupulse/arena/internal/duel"
	"github.com/edupulse/arena/internal/errors"
	"github.com/edupulse/arena/internal/gate"
	"github.com/edupulse/arena/internal/matchmaking"
)

type Config struct {
	Gate  *gate.Gate
	Queue *matchmaking.Queue
	Duels *duel.Service
	Hub   *Hub
}

type Handler struct {
	gate  *gate.Gate
	queue *matchmaking.Queue
	duels *duel.Service
	hub   *Hub

	upgrader websocket.Upgrader
}

func New(c Config) *Handler {
	return &Handler{
		gate:  c.Gate,
		queue: c.Queue,
		duels: c.Duels,
		hub:   c.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are native apps, not browsers; origin is meaningless.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) Register(e *gin.Engine) {
	e.GET("/ws/arena", h.handleArena)
}

// handleArena authenticates the caller and upgrades the connection. The gate
// runs before the upgrade, so an unauthenticated caller gets a plain HTTP
// error and no handler is ever registered for them.
func (h *Handler) handleArena(c *gin.Context) {
	token := bearerToken(c)

	identity, err := h.gate.Authenticate(c.Request.Context(), token)
	if err != nil {
		e := errors.Convert(err)
		c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	conn := newConn(h, ws, identity)
	h.hub.add(conn)

	go conn.writePump()
	go conn.readPump()
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}

	auth := c.GetHeader("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}
