package websocket

import (
	"encoding/json"
	"time"

	"livechat/internal/models"
	"livechat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

// Client is one open realtime connection bound to an authenticated session.
type Client struct {
	id       string
	seq      uint64
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity *models.SessionIdentity
	typing   *rate.Limiter
}

func NewClient(hub *Hub, conn *websocket.Conn, identity *models.SessionIdentity) *Client {
	c := &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
	}
	if hub.typingRate > 0 {
		burst := hub.typingBurst
		if burst < 1 {
			burst = 1
		}
		c.typing = rate.NewLimiter(rate.Limit(hub.typingRate), burst)
	}
	return c
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) allowTyping() bool {
	return c.typing == nil || c.typing.Allow()
}

// ReadPump forwards events from the connection to the hub until the
// connection fails, then unregisters the client.
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Warn("Discarding malformed frame from %s: %v", c.id, err)
			continue
		}
		c.hub.Dispatch(c, event)
	}
}

// WritePump drains the send channel to the connection and keeps it alive
// with pings. A closed send channel ends the connection with a close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
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
