package transport

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"github.com/omochice/live-search/pkg/protocol"
)

// State is the lifecycle state of the shared connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Router receives every reply decoded from the connection.
type Router interface {
	Route(reply protocol.Reply) bool
}

// Settings tunes a Manager.
type Settings struct {
	// ReconnectCooldown is the minimum time between two connect attempts.
	ReconnectCooldown time.Duration
	WriteTimeout      time.Duration
	// IncludeOwnSuggestions is forwarded to the service in the connection url.
	IncludeOwnSuggestions bool
	// Now is the clock used for the cool-down. Defaults to time.Now.
	Now func() time.Time
}

// DefaultSettings returns the settings used by NewWithDefaults.
func DefaultSettings() *Settings {
	return &Settings{
		ReconnectCooldown: 1000 * time.Millisecond,
		WriteTimeout:      5 * time.Second,
		Now:               time.Now,
	}
}

// Manager maintains at most one live connection to the search endpoint.
// Connection failures are never reported to callers; they only flip the
// state back to StateClosed and the next EnsureConnected retries.
type Manager struct {
	endpoint string
	dialer   Dialer
	router   Router
	settings *Settings
	limiter  *rate.Limiter

	mu          sync.RWMutex
	state       State
	conn        Conn
	generation  uint64
	lastAttempt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithDefaults creates a Manager with DefaultSettings.
func NewWithDefaults(endpoint string, dialer Dialer, router Router) *Manager {
	return New(endpoint, dialer, router, DefaultSettings())
}

// New creates a Manager. No connection is attempted until EnsureConnected.
func New(endpoint string, dialer Dialer, router Router, settings *Settings) *Manager {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		endpoint: endpoint,
		dialer:   dialer,
		router:   router,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Every(settings.ReconnectCooldown), 1),
		state:    StateClosed,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// URL returns the endpoint with the capability flag attached.
func (m *Manager) URL() (string, error) {
	u, err := url.Parse(m.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("include_own_suggestions", strconv.FormatBool(m.settings.IncludeOwnSuggestions))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsOpen returns whether queries can currently be sent.
func (m *Manager) IsOpen() bool {
	return m.State() == StateOpen
}

// LastAttempt returns when the last connect attempt was started.
func (m *Manager) LastAttempt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAttempt
}

// EnsureConnected starts a connect attempt if the connection is closed and
// the cool-down since the previous attempt has elapsed. It never blocks.
func (m *Manager) EnsureConnected() {
	m.mu.Lock()
	if m.state != StateClosed || m.ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	now := m.settings.Now()
	if !m.limiter.AllowN(now, 1) {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.lastAttempt = now
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.wg.Add(1)
	go m.connect(gen)
}

// Send writes one frame if the connection is open. Sending while not open
// is a silent no-op; the return value reports whether the frame was written.
func (m *Manager) Send(data []byte) bool {
	m.mu.RLock()
	conn := m.conn
	gen := m.generation
	open := m.state == StateOpen
	m.mu.RUnlock()

	if !open || conn == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.settings.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, data); err != nil {
		glog.Infof("[t]write error %s = %s", conn.RemoteAddr(), err)
		m.drop(gen)
		return false
	}
	return true
}

// SendQuery encodes and sends a query.
func (m *Manager) SendQuery(q protocol.Query) bool {
	data, err := q.Encode()
	if err != nil {
		glog.Infof("[t]%s", err)
		return false
	}
	return m.Send(data)
}

// Keepalive sends an empty frame to keep the connection from idling out.
func (m *Manager) Keepalive() {
	if m.Send(protocol.EmptyFrame()) {
		glog.V(2).Infof("[t]keepalive")
	}
}

// Close tears down the connection and stops reconnecting.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateClosed
	m.generation++
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
}

func (m *Manager) connect(gen uint64) {
	defer m.wg.Done()

	target, err := m.URL()
	if err != nil {
		glog.Infof("[t]connect error = %s", err)
		m.drop(gen)
		return
	}

	conn, err := m.dialer.Dial(m.ctx, target)
	if err != nil {
		glog.Infof("[t]connect error %s = %s", target, err)
		m.drop(gen)
		return
	}

	// The handshake goes out before the state is published, so no query
	// can reach the wire ahead of it.
	ctx, cancel := context.WithTimeout(m.ctx, m.settings.WriteTimeout)
	err = conn.Write(ctx, protocol.EmptyFrame())
	cancel()
	if err != nil {
		glog.Infof("[t]handshake error %s = %s", conn.RemoteAddr(), err)
		conn.Close()
		m.drop(gen)
		return
	}

	m.mu.Lock()
	if gen != m.generation || m.state != StateConnecting {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.state = StateOpen
	m.conn = conn
	m.mu.Unlock()

	glog.V(2).Infof("[t]open %s", conn.RemoteAddr())

	m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.Read(m.ctx)
		if err != nil {
			if m.ctx.Err() == nil {
				glog.Infof("[tr]%s<- error = %s", conn.RemoteAddr(), err)
			}
			m.drop(gen)
			return
		}
		m.dispatch(data)
	}
}

func (m *Manager) dispatch(data []byte) {
	if protocol.IsEmptyFrame(data) {
		return
	}

	var reply protocol.Reply
	if err := reply.Decode(data); err != nil {
		glog.V(2).Infof("[tr]drop %s", err)
		return
	}

	if m.router.Route(reply) {
		glog.V(2).Infof("[tr]routed state=%s results=%d", reply.State, len(reply.Results))
	}
}

// drop closes the connection of generation gen, if it is still current.
func (m *Manager) drop(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateClosed
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
