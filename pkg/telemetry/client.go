package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/protocol"
)

// ErrNotConnected is returned by Send while no robot connection is up.
var ErrNotConnected = errors.New("telemetry: not connected")

// ClientConfig configures the robot connection.
type ClientConfig struct {
	URL    string // ws://10.TE.AM.2:5800/ws/telemetry
	Team   int
	Camera string
	Width  int
	Height int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration
}

// DefaultClientConfig returns timeouts suited to the robot LAN.
func DefaultClientConfig(url string, team int) ClientConfig {
	return ClientConfig{
		URL:              url,
		Team:             team,
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     100 * time.Millisecond,
		ReconnectBase:    500 * time.Millisecond,
		ReconnectMax:     10 * time.Second,
	}
}

// Validate checks the configuration.
func (c ClientConfig) Validate() []string {
	var errs []string
	if c.URL == "" {
		errs = append(errs, "url is required")
	}
	if c.ReconnectBase <= 0 {
		errs = append(errs, "reconnect base delay must be positive")
	}
	if c.ReconnectMax < c.ReconnectBase {
		errs = append(errs, "reconnect max delay must be at least the base delay")
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, "write timeout must be positive")
	}
	return errs
}

// Client pushes targeting data to the robot over a websocket. Run keeps the
// connection up; Send writes one message and never blocks longer than the
// write timeout.
type Client struct {
	cfg     ClientConfig
	log     *slog.Logger
	session string
	dialer  websocket.Dialer

	mu   sync.Mutex // guards conn and serialises writes
	conn *websocket.Conn

	sent       atomic.Uint64
	reconnects atomic.Int64
}

// NewClient creates a client. Call Run to connect.
func NewClient(cfg ClientConfig) (*Client, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("telemetry: invalid config: %v", errs)
	}
	session := uuid.NewString()
	return &Client{
		cfg:     cfg,
		log:     log.Component("telemetry").With("session", session),
		session: session,
		dialer:  websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}, nil
}

// Session returns the ID announced in every hello message.
func (c *Client) Session() string {
	return c.session
}

// IsConnected reports whether a robot connection is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Sent returns the number of targeting messages written.
func (c *Client) Sent() uint64 {
	return c.sent.Load()
}

// Reconnects returns how many connection attempts failed or dropped.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// Connect dials the robot and announces the session.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("telemetry: dial %s: %w", c.cfg.URL, err)
	}

	hello, err := protocol.NewHelloMessage(protocol.HelloData{
		Session: c.session,
		Team:    c.cfg.Team,
		Camera:  c.cfg.Camera,
		Width:   c.cfg.Width,
		Height:  c.cfg.Height,
	})
	if err != nil {
		conn.Close()
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return fmt.Errorf("telemetry: hello: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("connected to robot", "url", c.cfg.URL)
	return nil
}

// Run connects and keeps reconnecting with exponential backoff until ctx
// is done. It returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.ReconnectBase
	for {
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.reconnects.Add(1)
			c.log.Warn("robot connection failed, retrying", "error", err, "retry_in", delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.cfg.ReconnectMax {
				delay = c.cfg.ReconnectMax
			}
			continue
		}

		delay = c.cfg.ReconnectBase
		err := c.readLoop(ctx)
		c.drop()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.reconnects.Add(1)
		c.log.Warn("robot connection lost", "error", err)
	}
}

// readLoop answers robot pings and returns when the connection fails.
func (c *Client) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.log.Debug("ignoring robot message", "error", err)
			continue
		}
		if msg.Type != protocol.TypePing {
			continue
		}
		pong, err := protocol.Pong(msg)
		if err != nil {
			continue
		}
		if err := c.write(pong); err != nil {
			return err
		}
	}
}

// Send writes one targeting message.
func (c *Client) Send(data protocol.TargetingData) error {
	msg, err := protocol.NewTargetingMessage(data)
	if err != nil {
		return err
	}
	if err := c.write(msg); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

func (c *Client) write(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("telemetry: write: %w", err)
	}
	return nil
}

func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close drops the connection. Run must be stopped through its context.
func (c *Client) Close() error {
	c.drop()
	return nil
}
