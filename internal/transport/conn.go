// Package transport owns the single connection shared by every search
// session: reconnect cool-down, keepalive and routing of inbound replies.
package transport

import "context"

// Conn abstracts one established connection to the search service.
// This interface isolates the WebSocket library from connection management.
type Conn interface {
	// Read reads a single text frame.
	// Returns an error once the connection is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single text frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens connections to the search endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// Dial implements Dialer.
func (f DialFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}
