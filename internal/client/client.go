// Package client speaks the wall protocol from the controlling side.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pixelwall/server/internal/net/packet"
)

// ErrBadAck is returned when the server answers with something other than
// the acknowledgement.
var ErrBadAck = errors.New("unexpected reply")

// Client is a single connection to a wall. Not safe for concurrent use.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	ack     [len(packet.AckMessage)]byte
}

// Dial connects to addr. timeout bounds the dial and every later
// acknowledgement wait.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Send writes one command and waits for its acknowledgement.
func (c *Client) Send(cmd packet.Command) error {
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	if _, err := c.conn.Write(packet.Encode(cmd)); err != nil {
		return fmt.Errorf("send %s: %w", packet.Name(cmd.Opcode()), err)
	}
	if _, err := io.ReadFull(c.conn, c.ack[:]); err != nil {
		return fmt.Errorf("await ack for %s: %w", packet.Name(cmd.Opcode()), err)
	}
	if !bytes.Equal(c.ack[:], packet.AckMessage[:]) {
		return fmt.Errorf("%w: %q", ErrBadAck, c.ack[:])
	}
	return nil
}

// Upload writes frames to consecutive slots starting at start. progress,
// if non-nil, is called after each acknowledged frame.
func (c *Client) Upload(start int, frames [][]byte, progress func(done, total int)) error {
	if start < 0 || start+len(frames)-1 > 0xFFFF {
		return fmt.Errorf("slots %d..%d do not fit the protocol", start, start+len(frames)-1)
	}
	for i, f := range frames {
		cmd := &packet.WriteFrame{Slot: uint16(start + i)}
		if len(f) != len(cmd.Pixels) {
			return fmt.Errorf("frame %d: %w", i, packet.ErrLength)
		}
		copy(cmd.Pixels[:], f)
		if err := c.Send(cmd); err != nil {
			return fmt.Errorf("slot %d: %w", start+i, err)
		}
		if progress != nil {
			progress(i+1, len(frames))
		}
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
