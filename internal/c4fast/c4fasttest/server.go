// Package c4fasttest provides an in-process stand-in for the game server.
// It speaks the same websocket dialect as the real server (gorilla/websocket)
// and serves canned leaderboard/stats JSON.
package c4fasttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Peer is the server side of one accepted match connection.
type Peer struct {
	Username string
	Query    url.Values
	Header   http.Header

	conn     *websocket.Conn
	writeM   sync.Mutex
	Received chan []byte
	Closed   chan struct{}
}

// Server is an httptest-backed fake exposing /ws, /leaderboard and /stats.
type Server struct {
	t   testing.TB
	srv *httptest.Server

	peers chan *Peer

	mu          sync.Mutex
	leaderboard any
	stats       any
	failStatus  int
	lastHeader  http.Header

	LeaderboardHits atomic.Int32
	StatsHits       atomic.Int32
}

func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		t:           t,
		peers:       make(chan *Peer, 8),
		leaderboard: []map[string]any{},
		stats:       map[string]any{"totalGames": 0, "avgDuration": 0},
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p := &Peer{
			Username: username,
			Query:    r.URL.Query(),
			Header:   r.Header.Clone(),
			conn:     conn,
			Received: make(chan []byte, 16),
			Closed:   make(chan struct{}),
		}
		go p.readLoop()
		s.peers <- p
	})
	mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		s.LeaderboardHits.Add(1)
		s.writeJSON(w, r, func() any { return s.leaderboard })
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		s.StatsHits.Add(1)
		s.writeJSON(w, r, func() any { return s.stats })
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, body func() any) {
	s.mu.Lock()
	s.lastHeader = r.Header.Clone()
	status := s.failStatus
	v := body()
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, "unavailable", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// URL is the plain HTTP base URL.
func (s *Server) URL() string { return s.srv.URL }

// WSURL is the match endpoint without the username parameter.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

func (s *Server) SetLeaderboard(v any) {
	s.mu.Lock()
	s.leaderboard = v
	s.mu.Unlock()
}

func (s *Server) SetStats(v any) {
	s.mu.Lock()
	s.stats = v
	s.mu.Unlock()
}

// LastHeader returns the headers of the most recent REST request.
func (s *Server) LastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeader
}

// FailWith makes the REST endpoints answer with status (0 restores normal replies).
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	s.failStatus = status
	s.mu.Unlock()
}

// Accept waits for the next client connection.
func (s *Server) Accept() *Peer {
	s.t.Helper()
	select {
	case p := <-s.peers:
		s.t.Cleanup(func() { _ = p.conn.Close() })
		return p
	case <-time.After(3 * time.Second):
		s.t.Fatalf("no websocket client connected")
		return nil
	}
}

func (p *Peer) readLoop() {
	defer close(p.Closed)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		p.Received <- data
	}
}

// Send pushes a raw text frame to the client.
func (p *Peer) Send(t testing.TB, raw string) {
	t.Helper()
	p.writeM.Lock()
	defer p.writeM.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("server send: %v", err)
	}
}

// SendJSON pushes v encoded as JSON.
func (p *Peer) SendJSON(t testing.TB, v any) {
	t.Helper()
	p.writeM.Lock()
	defer p.writeM.Unlock()
	if err := p.conn.WriteJSON(v); err != nil {
		t.Fatalf("server send json: %v", err)
	}
}

// Drop closes the connection with a normal close frame.
func (p *Peer) Drop() {
	p.writeM.Lock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	p.writeM.Unlock()
	_ = p.conn.Close()
}

// Next waits for the next client frame.
func (p *Peer) Next(t testing.TB) []byte {
	t.Helper()
	select {
	case b := <-p.Received:
		return b
	case <-time.After(3 * time.Second):
		t.Fatalf("no frame from client")
		return nil
	}
}

// Grid builds a wire board with the given cells set, keyed as [row, col] = player.
func Grid(cells map[[2]int]int) [][]int {
	g := make([][]int, 6)
	for r := range g {
		g[r] = make([]int, 7)
	}
	for rc, v := range cells {
		g[rc[0]][rc[1]] = v
	}
	return g
}
