// Package search implements the live-search session: one input bound to one
// results surface, polled for changes and rendered from routed replies.
package search

import (
	"sync"

	"github.com/golang/glog"

	"github.com/omochice/live-search/internal/registry"
	"github.com/omochice/live-search/pkg/protocol"
)

// Registrar assigns session ids and routes replies.
type Registrar interface {
	Register(s registry.Session) registry.ID
	Unregister(id registry.ID)
}

// Sender is the part of the shared transport a session uses.
type Sender interface {
	IsOpen() bool
	SendQuery(q protocol.Query) bool
}

// Session detects changes of its input and renders replies addressed to it.
// A session keeps no pending state across a round trip: replies are matched
// by id only and each one fully replaces what is shown.
type Session struct {
	id           registry.ID
	registrar    Registrar
	sender       Sender
	input        Input
	surface      Surface
	hooks        Hooks
	lastObserved string
	mu           sync.Mutex
}

// New creates a session and registers it, which assigns its id.
// It panics if hooks.Item is nil.
func New(reg Registrar, sender Sender, input Input, surface Surface, hooks Hooks) *Session {
	if hooks.Item == nil {
		panic("search: Hooks.Item is required")
	}
	s := &Session{
		registrar: reg,
		sender:    sender,
		input:     input,
		surface:   surface,
		hooks:     hooks.withDefaults(),
	}

	s.mu.Lock()
	s.id = reg.Register(s)
	s.mu.Unlock()

	return s
}

// ID returns the session id used as the reply correlation state.
func (s *Session) ID() registry.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// LastObserved returns the value compared against on the last send attempt.
func (s *Session) LastObserved() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastObserved
}

// Tick compares the input with the last observed value and sends a query
// when it changed while focused and the connection is open. An empty input
// clears the surface immediately, whatever the connection state.
func (s *Session) Tick() {
	s.mu.Lock()
	value := s.input.Value()
	var query *protocol.Query
	if s.input.Focused() && value != s.lastObserved && s.sender.IsOpen() {
		query = &protocol.Query{Search: value, State: protocol.FormatState(uint64(s.id))}
		// Updated even if the send below fails; the next edit retries.
		s.lastObserved = value
	}
	if value == "" {
		s.surface.Clear()
		s.surface.SetHasResults(false)
	}
	s.mu.Unlock()

	if query != nil && !s.sender.SendQuery(*query) {
		glog.V(2).Infof("[s]%d query %q not sent", s.id, query.Search)
	}
}

// OnResults implements registry.Session.
func (s *Session) OnResults(results []protocol.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]protocol.Result, 0, len(results))
	for _, r := range results {
		if s.hooks.Filter(r) {
			filtered = append(filtered, r)
		}
	}

	s.surface.Clear()

	if len(filtered) == 0 {
		if s.hooks.Placeholder != nil {
			s.surface.Append(s.hooks.Placeholder())
		}
		s.surface.SetHasResults(false)
		return
	}

	container := s.hooks.Container()
	for _, r := range filtered {
		item := s.hooks.Item(s.hooks.Format(r), r.ID, r.IsSuggestion)

		var attach Node = item
		if wrapper, inner := s.hooks.Wrapper(r.ID, r.IsSuggestion); wrapper != nil {
			if inner == nil {
				inner = wrapper
			}
			inner.Append(item)
			attach = wrapper
		}

		if container != nil {
			container.Append(attach)
		} else {
			s.surface.Append(attach)
		}

		s.hooks.PostItem(item)
	}

	s.surface.SetHasResults(true)
	if container != nil {
		s.surface.Append(container)
	}
}

// Dispose unregisters the session. Replies still in flight are dropped.
func (s *Session) Dispose() {
	s.registrar.Unregister(s.ID())
}

var _ registry.Session = (*Session)(nil)
