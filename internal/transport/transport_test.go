package transport_test

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/live-search/internal/transport"
	"github.com/omochice/live-search/pkg/protocol"
)

// fakeConn is an in-memory transport.Conn.
type fakeConn struct {
	readCh    chan []byte
	writtenMu sync.Mutex
	written   [][]byte
	writeErr  error
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readCh: make(chan []byte, 10),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, io.EOF
	case data := <-c.readCh:
		return data, nil
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.writtenMu.Lock()
	defer c.writtenMu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	c.written = append(c.written, copied)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "fake:1"
}

func (c *fakeConn) Written() []string {
	c.writtenMu.Lock()
	defer c.writtenMu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out fakeConns, or blocks until released when gate is set.
type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	err   error
	gate  chan struct{}
	// writeErr is preset on every conn handed out.
	writeErr error
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (transport.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, target)
	gate := d.gate
	err := d.err
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn()
	d.mu.Lock()
	conn.writeErr = d.writeErr
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) URL(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}

func (d *fakeDialer) Conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// fakeRouter records routed replies.
type fakeRouter struct {
	mu      sync.Mutex
	replies []protocol.Reply
	known   map[string]bool
}

func (r *fakeRouter) Route(reply protocol.Reply) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.known[reply.State] {
		return false
	}
	r.replies = append(r.replies, reply)
	return true
}

func (r *fakeRouter) Replies() []protocol.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Reply(nil), r.replies...)
}

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ transport.Conn   = (*fakeConn)(nil)
	_ transport.Dialer = (*fakeDialer)(nil)
	_ transport.Router = (*fakeRouter)(nil)
)

func newManager(t *testing.T, dialer transport.Dialer, router transport.Router) (*transport.Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	settings := transport.DefaultSettings()
	settings.Now = clock.Now
	m := transport.New("ws://search.example/search", dialer, router, settings)
	t.Cleanup(m.Close)
	return m, clock
}

func waitState(t *testing.T, m *transport.Manager, want transport.State) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State() == want }, time.Second, time.Millisecond,
		"state never became %s", want)
}

func TestManager_InitiallyClosed(t *testing.T) {
	m, _ := newManager(t, &fakeDialer{}, &fakeRouter{})

	assert.Equal(t, transport.StateClosed, m.State())
	assert.False(t, m.IsOpen())
	assert.True(t, m.LastAttempt().IsZero())
}

func TestManager_URLCarriesCapabilityFlag(t *testing.T) {
	for _, include := range []bool{false, true} {
		settings := transport.DefaultSettings()
		settings.IncludeOwnSuggestions = include
		m := transport.New("wss://search.example/search", &fakeDialer{}, &fakeRouter{}, settings)

		raw, err := m.URL()
		require.NoError(t, err)
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/search", u.Path)
		if include {
			assert.Equal(t, "true", u.Query().Get("include_own_suggestions"))
		} else {
			assert.Equal(t, "false", u.Query().Get("include_own_suggestions"))
		}
		m.Close()
	}
}

func TestManager_OpenSendsHandshake(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newManager(t, dialer, &fakeRouter{})

	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	require.Eventually(t, func() bool { return len(dialer.Conn(0).Written()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{""}, dialer.Conn(0).Written())
	assert.Equal(t, "ws://search.example/search?include_own_suggestions=false", dialer.URL(0))
}

func TestManager_HandshakePrecedesQueries(t *testing.T) {
	for i := 0; i < 200; i++ {
		dialer := &fakeDialer{}
		m, _ := newManager(t, dialer, &fakeRouter{})

		sent := make(chan bool, 1)
		go func() {
			for !m.IsOpen() {
			}
			sent <- m.SendQuery(protocol.Query{Search: "umf", State: "1"})
		}()
		m.EnsureConnected()

		require.True(t, <-sent)
		written := dialer.Conn(0).Written()
		require.Len(t, written, 2)
		require.Equal(t, "", written[0], "iteration %d", i)
		m.Close()
	}
}

func TestManager_HandshakeErrorCloses(t *testing.T) {
	dialer := &fakeDialer{writeErr: errors.New("broken pipe")}
	m, _ := newManager(t, dialer, &fakeRouter{})

	m.EnsureConnected()
	require.Eventually(t, func() bool {
		dialer.mu.Lock()
		defer dialer.mu.Unlock()
		return len(dialer.conns) == 1 && dialer.conns[0].IsClosed()
	}, time.Second, time.Millisecond)
	waitState(t, m, transport.StateClosed)

	assert.Empty(t, dialer.Conn(0).Written())
	assert.Equal(t, 1, dialer.Attempts())
}

func TestManager_EnsureConnectedIsNoopWhileConnecting(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	m, clock := newManager(t, dialer, &fakeRouter{})

	m.EnsureConnected()
	assert.Equal(t, transport.StateConnecting, m.State())

	clock.Advance(5 * time.Second)
	m.EnsureConnected()
	m.EnsureConnected()

	close(dialer.gate)
	waitState(t, m, transport.StateOpen)
	assert.Equal(t, 1, dialer.Attempts())

	clock.Advance(5 * time.Second)
	m.EnsureConnected()
	assert.Equal(t, 1, dialer.Attempts())
}

// Two successive attempts 500 ms apart while closed: only the first dials.
func TestManager_CooldownBetweenAttempts(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("refused")}
	m, clock := newManager(t, dialer, &fakeRouter{})

	m.EnsureConnected()
	first := m.LastAttempt()
	waitState(t, m, transport.StateClosed)
	require.Equal(t, 1, dialer.Attempts())

	clock.Advance(500 * time.Millisecond)
	m.EnsureConnected()
	assert.Equal(t, transport.StateClosed, m.State())
	assert.Equal(t, 1, dialer.Attempts())
	assert.Equal(t, first, m.LastAttempt())

	clock.Advance(500 * time.Millisecond)
	m.EnsureConnected()
	waitState(t, m, transport.StateClosed)
	assert.Equal(t, 2, dialer.Attempts())
	assert.GreaterOrEqual(t, m.LastAttempt().Sub(first), time.Second)
}

func TestManager_RetriesIndefinitely(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("refused")}
	m, clock := newManager(t, dialer, &fakeRouter{})

	for i := 0; i < 20; i++ {
		m.EnsureConnected()
		waitState(t, m, transport.StateClosed)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 20, dialer.Attempts())
}

func TestManager_SendWhileClosedIsNoop(t *testing.T) {
	m, _ := newManager(t, &fakeDialer{}, &fakeRouter{})

	assert.False(t, m.Send([]byte("x")))
	assert.False(t, m.SendQuery(protocol.Query{Search: "umf", State: "1"}))
	m.Keepalive()
}

func TestManager_SendQuery(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newManager(t, dialer, &fakeRouter{})
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	require.True(t, m.SendQuery(protocol.Query{Search: "umfazi", State: "1"}))
	m.Keepalive()

	require.Eventually(t, func() bool { return len(dialer.Conn(0).Written()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"", `{"search":"umfazi","state":"1"}`, ""}, dialer.Conn(0).Written())
}

func TestManager_WriteErrorCloses(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newManager(t, dialer, &fakeRouter{})
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	conn := dialer.Conn(0)
	conn.writtenMu.Lock()
	conn.writeErr = errors.New("broken pipe")
	conn.writtenMu.Unlock()

	assert.False(t, m.Send([]byte("x")))
	assert.Equal(t, transport.StateClosed, m.State())
	assert.True(t, conn.IsClosed())
}

func TestManager_RemoteCloseThenReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newManager(t, dialer, &fakeRouter{})
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	dialer.Conn(0).Close()
	waitState(t, m, transport.StateClosed)
	assert.False(t, m.Send([]byte("lost")))

	clock.Advance(time.Second)
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)
	assert.Equal(t, 2, dialer.Attempts())
}

func TestManager_RoutesReplies(t *testing.T) {
	dialer := &fakeDialer{}
	router := &fakeRouter{known: map[string]bool{"1": true}}
	m, _ := newManager(t, dialer, router)
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	conn := dialer.Conn(0)
	conn.readCh <- []byte(`{"state":"1","results":[{"id":5,"is_suggestion":false}]}`)
	conn.readCh <- []byte(`not json`)
	conn.readCh <- []byte(``)
	conn.readCh <- []byte(`{"state":"9","results":[]}`)
	conn.readCh <- []byte(`{"state":"1","results":[]}`)

	require.Eventually(t, func() bool { return len(router.Replies()) == 2 }, time.Second, time.Millisecond)
	replies := router.Replies()
	require.Len(t, replies[0].Results, 1)
	assert.Equal(t, uint64(5), replies[0].Results[0].ID)
	assert.Empty(t, replies[1].Results)
	assert.Equal(t, transport.StateOpen, m.State())
}

// For any interleaving of drops and retries at most one connection is live.
func TestManager_AtMostOneConnection(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newManager(t, dialer, &fakeRouter{})

	for i := 0; i < 10; i++ {
		m.EnsureConnected()
		m.EnsureConnected()
		waitState(t, m, transport.StateOpen)
		dialer.Conn(i).Close()
		waitState(t, m, transport.StateClosed)
		clock.Advance(time.Second)
	}

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	open := 0
	for _, c := range dialer.conns {
		if !c.IsClosed() {
			open++
		}
	}
	assert.LessOrEqual(t, open, 1)
	assert.Len(t, dialer.conns, 10)
}

func TestManager_CloseStopsReconnecting(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newManager(t, dialer, &fakeRouter{})
	m.EnsureConnected()
	waitState(t, m, transport.StateOpen)

	m.Close()
	assert.Equal(t, transport.StateClosed, m.State())
	assert.True(t, dialer.Conn(0).IsClosed())

	clock.Advance(time.Minute)
	m.EnsureConnected()
	assert.Equal(t, 1, dialer.Attempts())
}

func TestManager_CloseDuringDial(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	m, _ := newManager(t, dialer, &fakeRouter{})
	m.EnsureConnected()

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() blocked on a pending dial")
	}
	assert.Equal(t, transport.StateClosed, m.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", transport.StateClosed.String())
	assert.Equal(t, "CONNECTING", transport.StateConnecting.String())
	assert.Equal(t, "OPEN", transport.StateOpen.String())
	assert.Equal(t, "UNKNOWN", transport.State(9).String())
}
