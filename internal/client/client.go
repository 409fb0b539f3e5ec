// Package client wires one shared transport, one session registry and the
// poll loop into the object a front-end builds its search widgets on.
package client

import (
	"context"
	"time"

	"github.com/omochice/live-search/internal/config"
	"github.com/omochice/live-search/internal/poll"
	"github.com/omochice/live-search/internal/registry"
	"github.com/omochice/live-search/internal/search"
	"github.com/omochice/live-search/internal/transport"
	"github.com/omochice/live-search/internal/transport/ws"
)

type options struct {
	dialer transport.Dialer
	now    func() time.Time
}

// Option customizes a Client.
type Option func(*options)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithClock replaces the clock used for the reconnect cool-down.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Client owns the connection shared by all of its sessions.
type Client struct {
	registry  *registry.Registry
	transport *transport.Manager
	loop      *poll.Loop
}

// New creates a Client from cfg. Nothing is dialed until the loop runs.
func New(cfg config.Client, opts ...Option) *Client {
	o := options{
		dialer: ws.NewDialer(cfg.HandshakeTimeout()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.New()
	tr := transport.New(cfg.Endpoint, o.dialer, reg, &transport.Settings{
		ReconnectCooldown:     cfg.ReconnectCooldown(),
		WriteTimeout:          transport.DefaultSettings().WriteTimeout,
		IncludeOwnSuggestions: cfg.IncludeOwnSuggestions,
		Now:                   o.now,
	})
	loop := poll.New(tr, reg, &poll.Settings{
		PollInterval:      cfg.PollInterval(),
		KeepaliveInterval: cfg.KeepaliveInterval(),
	})

	return &Client{
		registry:  reg,
		transport: tr,
		loop:      loop,
	}
}

// NewSession binds input and surface to a new search session.
func (c *Client) NewSession(input search.Input, surface search.Surface, hooks search.Hooks) *search.Session {
	return search.New(c.registry, c.transport, input, surface, hooks)
}

// Run drives the poll loop until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	return c.loop.Run(ctx)
}

// Step runs a single poll iteration.
func (c *Client) Step() {
	c.loop.Step()
}

// Close closes the connection. Sessions stay registered but see the
// transport as closed from now on.
func (c *Client) Close() {
	c.transport.Close()
}

func (c *Client) Transport() *transport.Manager {
	return c.transport
}

func (c *Client) Sessions() *registry.Registry {
	return c.registry
}
