package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/websocket"
)

// Client connects to the echo endpoint and transparently re-dials with a
// fixed backoff when the connection drops. There is never more than one
// connection in flight.
type Client struct {
	url     string
	origin  string
	backoff time.Duration
	// maxAttempts bounds consecutive failed dials; zero retries forever.
	maxAttempts int
	logger      *slog.Logger

	conn    *websocket.Conn
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewClient creates a client for the websocket URL (ws://host/ws).
// backoff is the fixed delay between reconnect attempts.
func NewClient(url string, backoff time.Duration, maxAttempts int, logger *slog.Logger) *Client {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Client{
		url:         url,
		origin:      "http://localhost/",
		backoff:     backoff,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Connect dials the endpoint, retrying with the fixed backoff until a
// connection is established, maxAttempts dials have failed, or ctx is
// cancelled.
func (c *Client) Connect(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := websocket.Dial(c.url, "", c.origin)
		if err == nil {
			c.conn = conn
			c.encoder = json.NewEncoder(conn)
			c.decoder = json.NewDecoder(conn)
			return nil
		}
		attempt++
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			return fmt.Errorf("chat: connect %s: %w", c.url, err)
		}
		c.logger.Warn("chat: dial failed, retrying",
			slog.String("url", c.url),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", c.backoff),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

// Send writes one chat line. On a write failure it reconnects once and
// retries the write before giving up.
func (c *Client) Send(ctx context.Context, body string) error {
	if c.conn == nil {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	frame := Frame{Type: "chat.send", Payload: mustJSON(SendPayload{Body: body})}
	if err := c.encoder.Encode(frame); err != nil {
		c.Close()
		if err := c.Connect(ctx); err != nil {
			return err
		}
		if err := c.encoder.Encode(frame); err != nil {
			return fmt.Errorf("chat: send: %w", err)
		}
	}
	return nil
}

// Recv reads the next frame from the server.
func (c *Client) Recv() (Frame, error) {
	if c.conn == nil {
		return Frame{}, fmt.Errorf("chat: not connected")
	}
	var frame Frame
	if err := c.decoder.Decode(&frame); err != nil {
		return Frame{}, fmt.Errorf("chat: recv: %w", err)
	}
	return frame, nil
}

// Close tears down the current connection, if any.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.encoder = nil
		c.decoder = nil
	}
}
