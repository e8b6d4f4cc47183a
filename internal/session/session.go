package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultMoveWindow is how long an inferred move stays visible.
const DefaultMoveWindow = 500 * time.Millisecond

// Session guards the single authoritative State of a running client.
// Only the match package mutates it; everyone else reads snapshots.
type Session struct {
	mu    sync.RWMutex
	state State

	clock  clockwork.Clock
	window time.Duration

	moveTimer clockwork.Timer
	moveSeq   uint64

	onExpire func()
}

type Option func(*Session)

// WithClock swaps the clock driving the presentation window (tests use a fake clock).
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithMoveWindow(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.window = d
		}
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		clock:  clockwork.NewRealClock(),
		window: DefaultMoveWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = baseline("", "")
	return s
}

// OnMoveExpired registers fn to run (outside the lock) when the presentation window closes.
func (s *Session) OnMoveExpired(fn func()) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

// Snapshot returns a detached copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Reset replaces the state with a fresh baseline for username and returns the new match id.
// Any pending presentation timer is cancelled.
func (s *Session) Reset(username string) string {
	id := uuid.NewString()
	s.Mutate(func(st *State) {
		*st = baseline(id, username)
	})
	return id
}

// Mutate runs fn under the write lock. A LastMove pointer installed by fn arms
// the presentation window; clearing it cancels the window.
func (s *Session) Mutate(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state.LastMove
	fn(&s.state)
	after := s.state.LastMove

	if after == before {
		return
	}
	s.stopMoveTimerLocked()
	if after == nil {
		s.state.MoveExpires = time.Time{}
		return
	}
	seq := s.moveSeq
	s.state.MoveExpires = s.clock.Now().Add(s.window)
	s.moveTimer = s.clock.AfterFunc(s.window, func() { s.expireMove(seq) })
}

func (s *Session) stopMoveTimerLocked() {
	s.moveSeq++
	if s.moveTimer != nil {
		s.moveTimer.Stop()
		s.moveTimer = nil
	}
}

func (s *Session) expireMove(seq uint64) {
	s.mu.Lock()
	if seq != s.moveSeq || s.state.LastMove == nil {
		s.mu.Unlock()
		return
	}
	s.state.LastMove = nil
	s.state.MoveExpires = time.Time{}
	s.moveTimer = nil
	cb := s.onExpire
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (s *Session) Now() time.Time { return s.clock.Now() }
