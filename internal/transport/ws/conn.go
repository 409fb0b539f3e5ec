// Package ws provides the WebSocket client transport for the live-search
// connection, built on gobwas/ws.
package ws

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/live-search/internal/transport"
)

// Conn adapts a client-side gobwas/ws connection to transport.Conn.
type Conn struct {
	conn   net.Conn
	reader io.Reader
	mu     sync.Mutex
}

// NewConn wraps an upgraded client connection.
// br holds bytes already buffered during the handshake and may be nil; it is
// drained and returned to the gobwas pool.
func NewConn(conn net.Conn, br *bufio.Reader) *Conn {
	var reader io.Reader = conn
	if br != nil {
		if n := br.Buffered(); n > 0 {
			buffered, _ := br.Peek(n)
			reader = io.MultiReader(bytes.NewReader(bytes.Clone(buffered)), conn)
		}
		ws.PutReader(br)
	}
	return &Conn{conn: conn, reader: reader}
}

// Read implements transport.Conn.
// Reads the next text or binary frame; control frames are answered internally.
// The read is bounded by the ctx deadline and aborted when ctx is canceled.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	rw := struct {
		io.Reader
		io.Writer
	}{c.reader, lockedWriter{c}}
	data, _, err := wsutil.ReadServerData(rw)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return data, err
}

// Write implements transport.Conn.
// Writes a text frame; concurrent writers are serialized.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientText(c.conn, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// lockedWriter lets control-frame replies share the write lock.
type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.conn.Write(p)
}

// Dialer opens live-search connections.
type Dialer struct {
	dialer ws.Dialer
}

// NewDialer creates a Dialer whose handshake is bounded by timeout.
func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{dialer: ws.Dialer{Timeout: timeout}}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return NewConn(conn, br), nil
}

// Compile-time checks
var (
	_ transport.Conn   = (*Conn)(nil)
	_ transport.Dialer = (*Dialer)(nil)
)
