// Package match drives a single client session: it applies decoded server
// pushes to the session state and owns the realtime connection.
package match

import (
	"time"

	"go.uber.org/zap"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/protocol"
	"github.com/park285/connect4-client/internal/session"
)

// Effect summarizes what one Apply did.
type Effect struct {
	// Changed is false when the message was ignored.
	Changed bool
	// Move is the disc inferred from the board diff, if any.
	Move *board.Move
	// Finished is set by the first accepted OVER.
	Finished bool
}

// Machine is the protocol state machine. It holds no state of its own; all
// match data lives in session.State and Apply must run under the session lock.
type Machine struct {
	logger *zap.Logger
}

func NewMachine(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{logger: logger}
}

// Apply transitions st according to msg.
func (m *Machine) Apply(st *session.State, msg protocol.Message, now time.Time) Effect {
	switch v := msg.(type) {
	case protocol.Start:
		return m.applyStart(st, v, now)
	case protocol.Update:
		return m.applyUpdate(st, v)
	case protocol.Over:
		return m.applyOver(st, v, now)
	default:
		m.logger.Warn("match_unhandled_message", zap.String("match_id", st.MatchID))
		return Effect{}
	}
}

func (m *Machine) applyStart(st *session.State, msg protocol.Start, now time.Time) Effect {
	if st.Phase != session.PhaseConnecting {
		m.logger.Debug("match_start_ignored",
			zap.String("match_id", st.MatchID),
			zap.Stringer("phase", st.Phase),
		)
		return Effect{}
	}

	p1, p2 := msg.P1, msg.P2
	st.Player1 = &p1
	st.Player2 = &p2
	if p1 == st.Username {
		st.LocalPlayer = 1
	} else {
		st.LocalPlayer = 2
	}
	st.Turn = 1
	st.Board = board.EmptyBoard()
	st.PrevBoard = board.EmptyBoard()
	st.LastMove = nil
	st.MoveCount = 0
	st.StartedAt = now
	st.Phase = session.PhaseMatched

	m.logger.Info("match_start",
		zap.String("match_id", st.MatchID),
		zap.String("p1", p1),
		zap.String("p2", p2),
		zap.Int("local_player", st.LocalPlayer),
	)
	return Effect{Changed: true}
}

func (m *Machine) applyUpdate(st *session.State, msg protocol.Update) Effect {
	if st.Winner != nil {
		m.logger.Debug("match_update_after_over", zap.String("match_id", st.MatchID))
		return Effect{}
	}

	var mv *board.Move
	if msg.Board != nil {
		mv = m.applyBoard(st, *msg.Board)
	}
	st.Turn = msg.Turn
	// a turn without a usable grid is not enough to leave Connecting
	if st.Phase == session.PhaseMatched || (st.Phase == session.PhaseConnecting && msg.Board != nil) {
		st.Phase = session.PhaseInProgress
	}
	return Effect{Changed: true, Move: mv}
}

func (m *Machine) applyOver(st *session.State, msg protocol.Over, now time.Time) Effect {
	if st.Winner != nil {
		m.logger.Debug("match_over_repeated", zap.String("match_id", st.MatchID))
		return Effect{}
	}

	winner := msg.Winner
	st.Winner = &winner
	st.Turn = 0
	st.EndReason = msg.Reason
	st.EndedAt = now
	st.Phase = session.PhaseOver

	var mv *board.Move
	if msg.Board != nil {
		mv = m.applyBoard(st, *msg.Board)
	}

	m.logger.Info("match_over",
		zap.String("match_id", st.MatchID),
		zap.String("winner", winner),
		zap.String("reason", msg.Reason),
		zap.Int("moves", st.MoveCount),
	)
	return Effect{Changed: true, Move: mv, Finished: true}
}

// applyBoard installs next, diffs it against the baseline and stores the
// inferred move. A fresh pointer is installed per move so the session re-arms
// its presentation window.
func (m *Machine) applyBoard(st *session.State, next board.Board) *board.Move {
	prev := st.PrevBoard
	st.Board = next
	st.PrevBoard = next

	mv, ok := board.Diff(prev, next)
	if n := board.ChangedCells(prev, next); n > 1 {
		m.logger.Warn("match_board_multi_change",
			zap.String("match_id", st.MatchID),
			zap.Int("changed", n),
		)
	}
	if !ok {
		return nil
	}
	st.MoveCount++
	installed := mv
	st.LastMove = &installed
	out := mv
	return &out
}
