package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/c4fast"
	"github.com/park285/connect4-client/internal/protocol"
	"github.com/park285/connect4-client/internal/session"
)

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrInvalidColumn = errors.New("column must be between 0 and 6")
)

// LeaderboardRefresher is refreshed after every finished match.
type LeaderboardRefresher interface {
	Refresh(ctx context.Context) error
}

// Recorder persists a finished match.
type Recorder interface {
	Record(ctx context.Context, snap session.Snapshot) error
}

// link is one dialed connection. gen ties its callbacks to the Connect call that made it.
type link struct {
	gen    uint64
	ws     *c4fast.WebSocket
	closed atomic.Bool
}

// Manager owns the realtime connection of one client and feeds its frames
// through the Machine into the Session.
type Manager struct {
	wsURL  string
	wsOpts []c4fast.WSOption

	sess    *session.Session
	machine *Machine
	logger  *zap.Logger

	leaders  LeaderboardRefresher
	recorder Recorder
	bgTO     time.Duration
	bg       sync.WaitGroup

	connectM sync.Mutex
	gen      atomic.Uint64
	current  atomic.Pointer[link]

	obsM      sync.RWMutex
	observers []func(session.Snapshot)
}

type ManagerOption func(*Manager)

func WithSession(s *session.Session) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.sess = s
		}
	}
}

func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithDialTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.wsOpts = append(m.wsOpts, c4fast.WithDialTimeout(d)) }
}

func WithPingInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.wsOpts = append(m.wsOpts, c4fast.WithPingInterval(d)) }
}

// WithHeaders adds handshake headers to every dial.
func WithHeaders(h c4fast.HeaderProvider) ManagerOption {
	return func(m *Manager) {
		if h != nil {
			m.wsOpts = append(m.wsOpts, c4fast.WithWSHeaderProvider(h))
		}
	}
}

func WithLeaderboard(r LeaderboardRefresher) ManagerOption {
	return func(m *Manager) { m.leaders = r }
}

func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// NewManager prepares a manager for the match endpoint wsURL (ws://host/ws).
func NewManager(wsURL string, opts ...ManagerOption) *Manager {
	m := &Manager{
		wsURL:  wsURL,
		logger: zap.NewNop(),
		bgTO:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sess == nil {
		m.sess = session.New()
	}
	m.machine = NewMachine(m.logger)
	m.wsOpts = append(m.wsOpts, c4fast.WithWSLogger(m.logger))
	m.sess.OnMoveExpired(m.notify)
	return m
}

// OnChange registers an observer called with a snapshot after every state change.
// Observers run on the connection's goroutines and must not block.
func (m *Manager) OnChange(fn func(session.Snapshot)) {
	if fn == nil {
		return
	}
	m.obsM.Lock()
	m.observers = append(m.observers, fn)
	m.obsM.Unlock()
}

func (m *Manager) Snapshot() session.Snapshot { return m.sess.Snapshot() }

// Connect replaces any existing connection with a fresh one for username.
// A dial failure leaves the session Disconnected and is returned to the caller.
func (m *Manager) Connect(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}

	m.connectM.Lock()
	defer m.connectM.Unlock()

	gen := m.gen.Add(1)
	if old := m.current.Swap(nil); old != nil {
		if err := old.ws.Close(ctx); err != nil {
			m.logger.Debug("ws_close_previous", zap.Error(err))
		}
	}

	matchID := m.sess.Reset(username)
	m.sess.Mutate(func(st *session.State) {
		st.Status = session.Connecting
		st.Phase = session.PhaseConnecting
	})
	m.notify()

	target, err := c4fast.MatchURL(m.wsURL, username)
	if err != nil {
		m.markDisconnected(gen)
		return fmt.Errorf("match url: %w", err)
	}

	l := &link{gen: gen}
	l.ws = c4fast.NewWebSocket(target, m.wsOpts...)
	l.ws.OnMessage(m.frameHandler(l))
	l.ws.OnStateChange(m.stateHandler(l))

	m.logger.Info("ws_connecting", zap.String("match_id", matchID), zap.String("username", username))
	if err := l.ws.Connect(ctx); err != nil {
		m.logger.Warn("ws_connect_failed", zap.String("match_id", matchID), zap.Error(err))
		m.markDisconnected(gen)
		return fmt.Errorf("connect %s: %w", username, err)
	}
	m.current.Store(l)

	m.sess.Mutate(func(st *session.State) {
		if m.gen.Load() != gen || l.closed.Load() {
			return
		}
		st.Status = session.Connected
	})
	m.notify()
	return nil
}

func (m *Manager) markDisconnected(gen uint64) {
	m.sess.Mutate(func(st *session.State) {
		if m.gen.Load() != gen {
			return
		}
		st.Status = session.Disconnected
		st.Phase = session.PhaseIdle
	})
	m.notify()
}

func (m *Manager) frameHandler(l *link) c4fast.MessageCallback {
	return func(raw []byte) {
		msg, err := protocol.Decode(raw)
		if err != nil {
			m.logger.Warn("ws_frame_discarded",
				zap.Bool("shape", protocol.IsShapeError(err)),
				zap.Int("bytes", len(raw)),
				zap.Error(err),
			)
			return
		}
		if berr := protocol.BoardError(msg); berr != nil {
			m.logger.Warn("ws_frame_discarded",
				zap.Bool("shape", true),
				zap.String("kind", string(msg.Kind())),
				zap.Error(berr),
			)
		}

		var eff Effect
		m.sess.Mutate(func(st *session.State) {
			if m.gen.Load() != l.gen {
				return
			}
			eff = m.machine.Apply(st, msg, m.sess.Now())
		})
		if !eff.Changed {
			return
		}
		snap := m.sess.Snapshot()
		m.notifyWith(snap)
		if eff.Finished {
			m.afterMatch(snap)
		}
	}
}

func (m *Manager) stateHandler(l *link) c4fast.StateCallback {
	return func(state c4fast.WebSocketState) {
		if state != c4fast.WSStateDisconnected {
			return
		}
		l.closed.Store(true)

		stale := false
		m.sess.Mutate(func(st *session.State) {
			if m.gen.Load() != l.gen {
				stale = true
				return
			}
			st.Status = session.Disconnected
			if st.Winner == nil {
				st.Board = board.EmptyBoard()
				st.PrevBoard = board.EmptyBoard()
				st.LastMove = nil
				st.Turn = 0
				st.Phase = session.PhaseIdle
			}
		})
		if stale {
			return
		}
		m.logger.Info("ws_disconnected", zap.Uint64("gen", l.gen))
		m.notify()
	}
}

// afterMatch refreshes the leaderboard and records the match in the background.
func (m *Manager) afterMatch(snap session.Snapshot) {
	if m.leaders == nil && m.recorder == nil {
		return
	}
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.bgTO)
		defer cancel()
		if m.leaders != nil {
			if err := m.leaders.Refresh(ctx); err != nil {
				m.logger.Warn("leaderboard_refresh_failed", zap.String("match_id", snap.MatchID), zap.Error(err))
			}
		}
		if m.recorder != nil {
			if err := m.recorder.Record(ctx, snap); err != nil {
				m.logger.Warn("history_record_failed", zap.String("match_id", snap.MatchID), zap.Error(err))
			}
		}
	}()
}

// SendMove sends a column intent. Without an open connection the intent is
// dropped and nil is returned.
func (m *Manager) SendMove(ctx context.Context, col int) error {
	if col < 0 || col >= board.Columns {
		return ErrInvalidColumn
	}
	l := m.current.Load()
	if l == nil || m.sess.Snapshot().Status != session.Connected {
		m.logger.Debug("move_dropped_not_connected", zap.Int("col", col))
		return nil
	}
	err := l.ws.WriteJSON(ctx, protocol.MoveIntent{Col: col})
	if errors.Is(err, c4fast.ErrNotConnected) {
		m.logger.Debug("move_dropped_not_connected", zap.Int("col", col))
		return nil
	}
	if err != nil {
		return fmt.Errorf("send move: %w", err)
	}
	m.logger.Debug("move_sent", zap.Int("col", col))
	return nil
}

// Close shuts the current connection and waits for background match work.
func (m *Manager) Close(ctx context.Context) error {
	m.connectM.Lock()
	l := m.current.Swap(nil)
	m.connectM.Unlock()

	var err error
	if l != nil {
		err = l.ws.Close(ctx)
	}

	done := make(chan struct{})
	go func() {
		m.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (m *Manager) notify() { m.notifyWith(m.sess.Snapshot()) }

func (m *Manager) notifyWith(snap session.Snapshot) {
	m.obsM.RLock()
	obs := make([]func(session.Snapshot), len(m.observers))
	copy(obs, m.observers)
	m.obsM.RUnlock()
	for _, fn := range obs {
		fn(snap)
	}
}
