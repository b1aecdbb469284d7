package herdclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client sends one request per connection to a herd server.
type Client struct {
	dialer    Dialer
	ioTimeout time.Duration
	maxReply  int64
}

// NewClient creates a Client. ioTimeout bounds writing the request and
// reading the reply; maxReply caps the number of reply bytes kept.
func NewClient(dialer Dialer, ioTimeout time.Duration, maxReply int64) *Client {
	return &Client{
		dialer:    dialer,
		ioTimeout: ioTimeout,
		maxReply:  maxReply,
	}
}

// Request writes line to addr, half-closes the connection and returns the
// whole reply.
func (c *Client) Request(ctx context.Context, addr, line string) (string, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if c.ioTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.ioTimeout)); err != nil {
			return "", fmt.Errorf("failed to set deadline for %s: %w", addr, err)
		}
	}

	// Unblock reads and writes when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := io.WriteString(conn, line); err != nil {
		return "", fmt.Errorf("failed to write to %s: %w", addr, err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return "", fmt.Errorf("failed to half-close %s: %w", addr, err)
		}
	}

	reply, err := io.ReadAll(io.LimitReader(conn, c.maxReply))
	if err != nil {
		return string(reply), fmt.Errorf("failed to read reply from %s: %w", addr, err)
	}
	return string(reply), nil
}

// Send delivers line to addr and discards whatever the server answers.
func (c *Client) Send(ctx context.Context, addr, line string) error {
	_, err := c.Request(ctx, addr, line)
	return err
}
