package ws

import (
	"context"
	"fmt"
	"sync"

	"jhitster/internal/app"
	"jhitster/internal/protocol"

	"github.com/coder/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Client is a guest's connection to a room. It implements ports.HostLink.
type Client struct {
	conn   *websocket.Conn
	logger runtime.Logger

	mu  sync.Mutex
	ctx context.Context
}

// Dial connects to a room websocket, e.g. ws://host/rooms/ABC234/ws.
func Dial(ctx context.Context, url string, logger runtime.Logger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return &Client{conn: conn, logger: logger, ctx: context.Background()}, nil
}

// Send writes one guest intent.
func (c *Client) Send(msg protocol.GuestMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(wctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.MessageType(), err)
	}
	return nil
}

// Run feeds every host message into guest until the connection or ctx closes.
func (c *Client) Run(ctx context.Context, guest *app.Guest) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		msg, err := protocol.DecodeHost(data)
		if err != nil {
			c.logger.Warn("Client: ignoring frame: %v", err)
			continue
		}
		guest.Apply(msg)
	}
}

// Close ends the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
