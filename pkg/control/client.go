package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// ErrRejected wraps an error reply from the server.
var ErrRejected = errors.New("control: request rejected")

// DefaultReplyTimeout bounds the wait for a reply when ctx has no deadline.
const DefaultReplyTimeout = 5 * time.Second

// Client sends commands to a control server, one request in flight at a time.
// A connection that fails mid-request is dropped and redialled by the next Send.
type Client struct {
	url    string
	conn   *websocket.Conn
	closed bool
	mu     sync.Mutex
}

// Dial connects to a control endpoint such as "ws://localhost:5555/control".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, err := dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Client{url: url, conn: conn}, nil
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// Send implements dispatch.Commander. It blocks until the server replies.
func (c *Client) Send(ctx context.Context, cmd engine.Command) error {
	req, err := NewRequest(uuid.New().String(), cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%s: %w", c.url, net.ErrClosed)
	}
	if c.conn == nil {
		conn, err := dial(ctx, c.url)
		if err != nil {
			return err
		}
		log.Printf("[ControlClient] reconnected to %s", c.url)
		c.conn = conn
	}

	reply, err := c.roundTrip(ctx, req)
	if err != nil {
		// a timed out or broken websocket cannot be reused
		c.drop()
		return err
	}

	if reply.Status != StatusOK {
		return fmt.Errorf("%w: %s", ErrRejected, reply.Error)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Reply, error) {
	var reply Reply

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultReplyTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return reply, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return reply, fmt.Errorf("send %s: %w", req.RequestType(), err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return reply, err
	}
	if err := c.conn.ReadJSON(&reply); err != nil {
		return reply, fmt.Errorf("read reply to %s: %w", req.RequestType(), err)
	}

	if reply.ID != req.GetID() {
		return reply, fmt.Errorf("control: reply id %q does not match request %q", reply.ID, req.GetID())
	}
	return reply, nil
}

func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close closes the connection. Later sends fail with net.ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}
