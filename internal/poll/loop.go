// Package poll drives the live-search client: a short fixed-interval tick
// that reconnects and re-checks every session, and a slower keepalive.
package poll

import (
	"context"
	"time"

	"github.com/omochice/live-search/internal/registry"
)

// Transport is the part of the connection manager the loop drives.
type Transport interface {
	EnsureConnected()
	IsOpen() bool
	Keepalive()
}

// Sessions iterates the registered sessions in registration order.
type Sessions interface {
	Each(fn func(id registry.ID, s registry.Session))
}

// Settings holds the loop intervals.
type Settings struct {
	PollInterval      time.Duration
	KeepaliveInterval time.Duration
}

// DefaultSettings returns a 250ms poll and a 10s keepalive.
func DefaultSettings() *Settings {
	return &Settings{
		PollInterval:      250 * time.Millisecond,
		KeepaliveInterval: 10 * time.Second,
	}
}

// Loop is the single process-wide driver of the client.
type Loop struct {
	transport Transport
	sessions  Sessions
	settings  *Settings
}

// New creates a Loop.
func New(transport Transport, sessions Sessions, settings *Settings) *Loop {
	return &Loop{
		transport: transport,
		sessions:  sessions,
		settings:  settings,
	}
}

// Step runs one poll iteration: reconnect if needed, then tick every
// session while the connection is open.
func (l *Loop) Step() {
	l.transport.EnsureConnected()
	if !l.transport.IsOpen() {
		return
	}
	l.sessions.Each(func(_ registry.ID, s registry.Session) {
		s.Tick()
	})
}

// Run steps once immediately, then on every poll interval, and sends a
// keepalive on every keepalive interval, until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	poll := time.NewTicker(l.settings.PollInterval)
	defer poll.Stop()
	keepalive := time.NewTicker(l.settings.KeepaliveInterval)
	defer keepalive.Stop()

	l.Step()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			l.Step()
		case <-keepalive.C:
			l.transport.Keepalive()
		}
	}
}
