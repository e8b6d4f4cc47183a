package session

import (
	"time"

	"github.com/park285/connect4-client/internal/board"
)

// Status is the realtime connection status as seen by the client.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Phase is the match lifecycle. Over only returns to Idle through a new connect.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseMatched
	PhaseInProgress
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseMatched:
		return "matched"
	case PhaseInProgress:
		return "in_progress"
	case PhaseOver:
		return "over"
	default:
		return "idle"
	}
}

// State is the match record for one connect..disconnect span.
type State struct {
	MatchID  string
	Status   Status
	Phase    Phase
	Username string

	// LocalPlayer is 0 until START, then 1 or 2.
	LocalPlayer int
	Player1     *string
	Player2     *string

	// Turn is 0 before START and after OVER.
	Turn      int
	Winner    *string
	EndReason string

	Board     board.Board
	PrevBoard board.Board

	LastMove    *board.Move
	MoveExpires time.Time
	MoveCount   int

	StartedAt time.Time
	EndedAt   time.Time
}

// Snapshot is a detached copy of State handed to readers.
type Snapshot = State

func baseline(matchID, username string) State {
	return State{
		MatchID:   matchID,
		Status:    Disconnected,
		Phase:     PhaseIdle,
		Username:  username,
		Board:     board.EmptyBoard(),
		PrevBoard: board.EmptyBoard(),
	}
}

func (s State) clone() State {
	out := s
	out.Player1 = cloneString(s.Player1)
	out.Player2 = cloneString(s.Player2)
	out.Winner = cloneString(s.Winner)
	if s.LastMove != nil {
		m := *s.LastMove
		out.LastMove = &m
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HasWinner reports whether the match reached OVER.
func (s State) HasWinner() bool { return s.Winner != nil }

// MyTurn reports whether the local player may drop a disc.
func (s State) MyTurn() bool {
	return s.Status == Connected && s.Winner == nil && s.LocalPlayer != 0 && s.Turn == s.LocalPlayer
}

// Opponent returns the other player's name, or "" before START.
func (s State) Opponent() string {
	switch s.LocalPlayer {
	case 1:
		return deref(s.Player2)
	case 2:
		return deref(s.Player1)
	default:
		return ""
	}
}

// Won reports whether the local user is the recorded winner.
func (s State) Won() bool { return s.Winner != nil && *s.Winner == s.Username }

// PlayerName returns the display name for player id 1 or 2.
func (s State) PlayerName(id int) string {
	switch id {
	case 1:
		return deref(s.Player1)
	case 2:
		return deref(s.Player2)
	default:
		return ""
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
