// Package registry maps session ids to live search sessions and routes
// replies from the search service back to them.
package registry

import (
	"sync"

	"github.com/golang/glog"

	"github.com/omochice/live-search/pkg/protocol"
)

// ID identifies a session for the lifetime of the process.
type ID uint64

// Session is what the registry tracks and routes replies to.
type Session interface {
	// Tick re-checks the bound input and possibly emits a query.
	Tick()

	// OnResults renders a reply addressed to the session.
	OnResults(results []protocol.Result)
}

// Registry manages all live sessions.
// Every session in the process shares one Registry instance.
type Registry struct {
	sessions map[ID]Session
	order    []ID
	next     ID
	mu       sync.RWMutex
}

// New creates a new Registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[ID]Session),
		next:     1,
	}
}

// Register assigns the next unused id to the session and adds it.
func (r *Registry) Register(s Session) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.sessions[id] = s
	r.order = append(r.order, id)
	return id
}

// Unregister removes a session. Unknown ids are ignored.
func (r *Registry) Unregister(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the session registered under id.
func (r *Registry) Lookup(id ID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Each calls fn for every session in registration order.
// It iterates over a snapshot, so fn may register or unregister sessions.
func (r *Registry) Each(fn func(id ID, s Session)) {
	r.mu.RLock()
	ids := make([]ID, len(r.order))
	copy(ids, r.order)
	sessions := make([]Session, len(ids))
	for i, id := range ids {
		sessions[i] = r.sessions[id]
	}
	r.mu.RUnlock()

	for i, id := range ids {
		fn(id, sessions[i])
	}
}

// Route delivers a reply to the session named by its state.
// It returns false if the state is malformed or the session is gone;
// both are expected when sessions are disposed with queries in flight.
func (r *Registry) Route(reply protocol.Reply) bool {
	id, err := reply.SessionID()
	if err != nil {
		glog.V(2).Infof("[registry]drop reply: %v", err)
		return false
	}

	s, ok := r.Lookup(ID(id))
	if !ok {
		glog.V(2).Infof("[registry]drop reply for unknown session %d", id)
		return false
	}

	s.OnResults(reply.Results)
	return true
}
