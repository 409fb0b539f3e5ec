// Package server implements a small live-search service speaking the same
// WebSocket protocol as the search client.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/omochice/live-search/internal/config"
	"github.com/omochice/live-search/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// ErrServerStopped is returned by Start after Stop.
var ErrServerStopped = errors.New("server stopped")

// session represents one connected search client
type session struct {
	conn               *websocket.Conn
	includeSuggestions bool
	outgoing           chan []byte
	heartbeat          atomic.Int64
}

func (c *session) touch(now time.Time) {
	c.heartbeat.Store(now.UnixNano())
}

func (c *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.heartbeat.Load()))
}

// Server represents the search service
type Server struct {
	cfg      config.Server
	index    *Index
	listener net.Listener
	server   *http.Server
	sessions map[*session]bool
	mu       sync.RWMutex
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Server instance
func New(cfg config.Server, index *Index) *Server {
	return &Server{
		cfg:      cfg,
		index:    index,
		sessions: make(map[*session]bool),
		quit:     make(chan struct{}),
	}
}

// Start listens and serves until Stop is called or serving fails.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)

	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		listener.Close()
		return ErrServerStopped
	default:
	}
	s.listener = listener
	s.server = &http.Server{Handler: mux}
	srv := s.server
	s.mu.Unlock()

	glog.Infof("[srv]listening on %s%s (%d words)", listener.Addr(), s.cfg.Path, s.index.Len())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-s.quit:
		return ErrServerStopped
	}
}

// Stop stops the server and closes every session.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})

	s.mu.Lock()
	if s.server != nil {
		s.server.Close()
	}
	for sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// SessionCount returns the number of connected clients
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	include, _ := strconv.ParseBool(r.URL.Query().Get("include_own_suggestions"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[srv]upgrade error = %s", err)
		return
	}

	sess := &session{
		conn:               conn,
		includeSuggestions: include,
		outgoing:           make(chan []byte, 10),
	}
	sess.touch(time.Now())

	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		conn.Close()
		return
	default:
	}
	s.sessions[sess] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.handleSession(sess)
}

func (s *Server) handleSession(sess *session) {
	defer s.wg.Done()
	done := make(chan struct{})
	defer func() {
		close(done)
		close(sess.outgoing)
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		sess.conn.Close()
	}()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		for data := range sess.outgoing {
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				glog.Infof("[srv]%s write error = %s", sess.conn.RemoteAddr(), err)
				sess.conn.Close()
				return
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		s.watchHeartbeat(sess, done)
	}()

	for {
		messageType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.V(2).Infof("[srv]%s read error = %s", sess.conn.RemoteAddr(), err)
			}
			return
		}
		sess.touch(time.Now())

		if messageType != websocket.TextMessage {
			continue
		}

		out, err := s.answer(sess, data)
		if err != nil {
			glog.Infof("[srv]%s", err)
			continue
		}
		if out == nil {
			continue
		}

		select {
		case sess.outgoing <- out:
		default:
			glog.Infof("[srv]%s outgoing full, dropping reply", sess.conn.RemoteAddr())
		}
	}
}

// watchHeartbeat closes the session once it has been silent for longer
// than the idle timeout.
func (s *Server) watchHeartbeat(sess *session, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatCheck())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			if sess.idleSince(now) > s.cfg.IdleTimeout() {
				glog.V(2).Infof("[srv]%s idle, closing", sess.conn.RemoteAddr())
				sess.conn.Close()
				return
			}
		}
	}
}

type reply struct {
	Results []Word `json:"results"`
	State   string `json:"state"`
}

// answer builds the response frame for one inbound text frame. A nil frame
// means nothing is sent back.
func (s *Server) answer(sess *session, data []byte) ([]byte, error) {
	if protocol.IsEmptyFrame(data) {
		return nil, nil
	}

	var q protocol.Query
	if err := q.Decode(data); err == nil {
		if q.Search == "" {
			return nil, nil
		}
		hits := s.search(q.Search, sess.includeSuggestions)
		out, err := json.Marshal(reply{Results: hits, State: q.State})
		if err != nil {
			return nil, fmt.Errorf("failed to encode reply: %w", err)
		}
		return out, nil
	}

	// Anything else is a bare query answered with a bare result list.
	out, err := json.Marshal(s.search(string(data), false))
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return out, nil
}

func (s *Server) search(query string, includeSuggestions bool) []Word {
	hits := s.index.Search(query, includeSuggestions, s.cfg.MaxResults)
	if hits == nil {
		hits = []Word{}
	}
	return hits
}
