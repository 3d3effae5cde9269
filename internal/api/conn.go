package api

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edupulse/arena/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Conn is one authenticated player connection. A read pump dispatches client
// messages into the game layer; a write pump drains the buffered send
// channel, so game handlers never block on a slow peer.
type Conn struct {
	h        *Handler
	ws       *websocket.Conn
	identity domain.Identity

	sendCh chan []byte
	closed atomic.Bool

	// superseded connections skip the queue/duel teardown: the user is still
	// here, just on a newer connection.
	superseded atomic.Bool
}

func newConn(h *Handler, ws *websocket.Conn, id domain.Identity) *Conn {
	return &Conn{
		h:        h,
		ws:       ws,
		identity: id,
		sendCh:   make(chan []byte, sendBuffer),
	}
}

// enqueue hands a marshalled message to the write pump. A full buffer means
// the peer is too slow to keep up with the game; dropping the connection
// surfaces as a regular disconnect.
func (c *Conn) enqueue(b []byte) {
	if c.closed.Load() {
		return
	}

	select {
	case c.sendCh <- b:
	default:
		slog.Warn("ws: send buffer full, dropping connection", "user", c.identity.UserID)
		c.ws.Close()
	}
}

func (c *Conn) supersede() {
	c.superseded.Store(true)
	c.ws.Close()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case b, ok := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer c.teardown()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("ws: unexpected close", "user", c.identity.UserID, "error", err)
			}
			return
		}

		c.dispatch(msg)
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// dispatch routes one client message. A bad or failing message never takes
// down the connection loop, let alone anyone else's.
func (c *Conn) dispatch(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ws: panic in message handler", "user", c.identity.UserID, "panic", r)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		slog.Debug("ws: undecodable message ignored", "user", c.identity.UserID, "error", err)
		return
	}

	switch env.Type {
	case TypeFindMatch:
		c.h.queue.Enqueue(c.identity)

	case TypeLeaveQueue:
		c.h.queue.Leave(c.identity.UserID)

	case TypeSubmitAnswer:
		var req SubmitAnswerRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			slog.Debug("ws: bad submit_answer payload", "user", c.identity.UserID, "error", err)
			return
		}
		if err := c.h.duels.Submit(c.identity.UserID, req.DuelID, req.OptionIndex, req.SecondsRemaining); err != nil {
			slog.Debug("ws: submit rejected", "user", c.identity.UserID, "duel", req.DuelID, "error", err)
		}

	default:
		slog.Debug("ws: unknown message type ignored", "user", c.identity.UserID, "type", env.Type)
	}
}

// teardown runs once when the read pump exits. Unless this connection was
// superseded by a newer one, the player leaves matchmaking and forfeits any
// active duel.
func (c *Conn) teardown() {
	c.closed.Store(true)
	c.ws.Close()
	c.h.hub.remove(c)

	if c.superseded.Load() {
		return
	}

	c.h.queue.Leave(c.identity.UserID)
	c.h.duels.Disconnect(c.identity.UserID)

	slog.Info("ws: connection closed", "user", c.identity.UserID)
}
