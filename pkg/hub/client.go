package hub

import (
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/frc2228/pigrip/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound messages; dashboards only send pings
	maxMessageSize = 64 * 1024
)

// ErrHubStopped is returned when a client connects after the hub has exited.
var ErrHubStopped = errors.New("hub: stopped")

// Conn is the subset of a websocket connection the client pumps use.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client represents a single websocket connection
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message

	// Replies to application-level pings. Owned by the client, never closed
	// by the hub.
	replies chan []byte
}

// NewClient creates a new client and registers it with the hub
func NewClient(hub *Hub, conn Conn) (*Client, error) {
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, 16), // small buffer: overlay frames are large and stale ones are useless
		replies: make(chan []byte, 4),
	}
	if !hub.add(client) {
		return nil, ErrHubStopped
	}
	return client, nil
}

// Run starts the client's read and write pumps
// This should be called in the websocket handler
func (c *Client) Run() {
	go c.writePump()
	c.readPump() // Blocks until connection closes
}

// readPump reads messages from the websocket connection.
// Dashboards may send protocol pings; anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
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
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return
	}
	pong, err := protocol.Pong(msg)
	if err != nil {
		c.hub.log.Debug("bad ping from client", "error", err)
		return
	}
	raw, err := pong.Bytes()
	if err != nil {
		return
	}
	select {
	case c.replies <- raw:
	default:
	}
}

// writePump writes messages to the websocket connection
// Only this goroutine writes to the connection - no race conditions!
func (c *Client) writePump() {
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
				// Hub closed the channel - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message.Data); err != nil {
				return
			}

		case reply := <-c.replies:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, reply); err != nil {
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
