package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
	warmTimeout    = 3 * time.Second
)

// Client is one websocket connection. It is the matchmaking.Conn of its user
// while it is the user's newest connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  uuid.UUID
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		userID:  userID,
		limiter: rate.NewLimiter(hub.eventRate, hub.eventBurst),
	}
}

func (c *Client) UserID() uuid.UUID {
	return c.userID
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error",
					slog.String("user_id", c.userID.String()),
					slog.String("error", err.Error()),
				)
			}
			break
		}

		if !c.limiter.Allow() {
			c.hub.throttled.EventThrottled()
			c.sendError("RATE_LIMITED", "Too many messages")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Message is not valid JSON")
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs on the read goroutine. Anything that may touch storage
// happens here, so the hub loop only ever sees in-memory work.
func (c *Client) handleMessage(msg *Message) {
	if msg.Type == MessageTypeInvite {
		var payload InvitePayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			c.warmUser(payload.ToUserID)
		}
	}
	c.hub.dispatch(c, msg)
}

// warmUser loads an invite target into the user cache so the engine can tell
// an unknown user from an offline one.
func (c *Client) warmUser(raw string) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	_, _ = c.hub.users.GetUser(ctx, id)
}

// Deliver implements matchmaking.Conn. It never blocks; a full buffer drops the event.
func (c *Client) Deliver(evt matchmaking.Event) {
	msg, err := NewMessage(MessageType(evt.Type), evt.Payload)
	if err != nil {
		c.hub.logger.Error("failed to encode event",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	c.Send(msg)
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal message", slog.String("error", err.Error()))
		return
	}
	if !c.trySend(data) {
		c.hub.logger.Warn("client send buffer full, message dropped",
			slog.String("user_id", c.userID.String()),
			slog.String("type", string(msg.Type)),
		)
	}
}

func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return true
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(code, message string) {
	msg, _ := NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
	c.Send(msg)
}

// Close marks the client closed and closes its send channel; WritePump then
// sends a close frame.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
}
