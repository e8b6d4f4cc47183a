package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/protocol"
	"github.com/park285/connect4-client/internal/session"
)

func waitingState(username string) *session.State {
	return &session.State{
		MatchID:   "m-1",
		Status:    session.Connected,
		Phase:     session.PhaseConnecting,
		Username:  username,
		Board:     board.EmptyBoard(),
		PrevBoard: board.EmptyBoard(),
	}
}

func withDisc(b board.Board, row, col int, c board.Cell) board.Board {
	b[row][col] = c
	return b
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStartAssignsLocalPlayer(t *testing.T) {
	m := NewMachine(nil)

	alice := waitingState("alice")
	eff := m.Apply(alice, protocol.Start{P1: "alice", P2: "bob"}, t0)
	require.True(t, eff.Changed)
	assert.Equal(t, 1, alice.LocalPlayer)
	assert.Equal(t, 1, alice.Turn)
	assert.Equal(t, session.PhaseMatched, alice.Phase)
	assert.Equal(t, "bob", alice.Opponent())
	assert.Equal(t, t0, alice.StartedAt)

	bob := waitingState("bob")
	m.Apply(bob, protocol.Start{P1: "alice", P2: "bob"}, t0)
	assert.Equal(t, 2, bob.LocalPlayer)
	assert.Equal(t, "alice", bob.Opponent())
}

func TestStartIgnoredOutsideConnecting(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)

	eff := m.Apply(st, protocol.Start{P1: "carol", P2: "alice"}, t0)
	assert.False(t, eff.Changed)
	assert.Equal(t, 1, st.LocalPlayer)
	assert.Equal(t, "bob", st.Opponent())
}

func TestUpdateInfersMove(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)

	b1 := withDisc(board.EmptyBoard(), 0, 3, board.PlayerOne)
	eff := m.Apply(st, protocol.Update{Board: &b1, Turn: 2}, t0)
	require.True(t, eff.Changed)
	require.NotNil(t, eff.Move)
	assert.Equal(t, board.Move{Row: 0, Column: 3, Player: board.PlayerOne}, *eff.Move)
	require.NotNil(t, st.LastMove)
	assert.Equal(t, *eff.Move, *st.LastMove)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, session.PhaseInProgress, st.Phase)
	assert.Equal(t, b1, st.PrevBoard)
	assert.Equal(t, 1, st.MoveCount)

	first := st.LastMove
	eff = m.Apply(st, protocol.Update{Board: &b1, Turn: 1}, t0)
	assert.True(t, eff.Changed)
	assert.Nil(t, eff.Move)
	assert.Same(t, first, st.LastMove)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, 1, st.MoveCount)

	b2 := withDisc(b1, 1, 3, board.PlayerTwo)
	eff = m.Apply(st, protocol.Update{Board: &b2, Turn: 1}, t0)
	require.NotNil(t, eff.Move)
	assert.Equal(t, board.Move{Row: 1, Column: 3, Player: board.PlayerTwo}, *eff.Move)
	assert.NotSame(t, first, st.LastMove)
}

func TestUpdateWarnsOnMultipleChanges(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := NewMachine(zap.New(core))
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)

	b := withDisc(withDisc(board.EmptyBoard(), 0, 5, board.PlayerOne), 0, 2, board.PlayerTwo)
	eff := m.Apply(st, protocol.Update{Board: &b, Turn: 1}, t0)
	require.NotNil(t, eff.Move)
	assert.Equal(t, 2, eff.Move.Column)
	assert.Equal(t, 1, logs.FilterMessage("match_board_multi_change").Len())
}

func TestOverLocksState(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)
	b1 := withDisc(board.EmptyBoard(), 0, 0, board.PlayerOne)
	m.Apply(st, protocol.Update{Board: &b1, Turn: 2}, t0)

	final := withDisc(b1, 0, 1, board.PlayerTwo)
	end := t0.Add(time.Minute)
	eff := m.Apply(st, protocol.Over{Winner: "bob", Board: &final, Reason: "forfeit"}, end)
	require.True(t, eff.Finished)
	require.NotNil(t, eff.Move)
	assert.Equal(t, 1, eff.Move.Column)
	require.NotNil(t, st.Winner)
	assert.Equal(t, "bob", *st.Winner)
	assert.Equal(t, 0, st.Turn)
	assert.Equal(t, "forfeit", st.EndReason)
	assert.Equal(t, session.PhaseOver, st.Phase)
	assert.Equal(t, end, st.EndedAt)
	assert.False(t, st.Won())

	later := withDisc(final, 1, 0, board.PlayerOne)
	eff = m.Apply(st, protocol.Update{Board: &later, Turn: 1}, end)
	assert.False(t, eff.Changed)
	assert.Equal(t, final, st.Board)
	assert.Equal(t, 0, st.Turn)

	eff = m.Apply(st, protocol.Over{Winner: "alice"}, end)
	assert.False(t, eff.Changed)
	assert.False(t, eff.Finished)
	assert.Equal(t, "bob", *st.Winner)
}

func TestOverWithoutBoardKeepsBoard(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)
	b1 := withDisc(board.EmptyBoard(), 0, 6, board.PlayerOne)
	m.Apply(st, protocol.Update{Board: &b1, Turn: 2}, t0)

	eff := m.Apply(st, protocol.Over{Winner: "alice"}, t0)
	assert.True(t, eff.Finished)
	assert.Nil(t, eff.Move)
	assert.Equal(t, b1, st.Board)
	assert.True(t, st.Won())
}

func TestUpdateWithBadGridKeepsBoardAndAppliesTurn(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)
	b1 := withDisc(board.EmptyBoard(), 0, 3, board.PlayerOne)
	m.Apply(st, protocol.Update{Board: &b1, Turn: 2}, t0)
	last := st.LastMove

	eff := m.Apply(st, protocol.Update{Turn: 1, BoardErr: board.ErrBoardShape}, t0)
	assert.True(t, eff.Changed)
	assert.Nil(t, eff.Move)
	assert.Equal(t, b1, st.Board)
	assert.Equal(t, b1, st.PrevBoard)
	assert.Same(t, last, st.LastMove)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, 1, st.MoveCount)
}

func TestOverWithBadGridStillFinishes(t *testing.T) {
	m := NewMachine(nil)
	st := waitingState("alice")
	m.Apply(st, protocol.Start{P1: "alice", P2: "bob"}, t0)
	b1 := withDisc(board.EmptyBoard(), 0, 3, board.PlayerOne)
	m.Apply(st, protocol.Update{Board: &b1, Turn: 2}, t0)

	eff := m.Apply(st, protocol.Over{Winner: "alice", BoardErr: board.ErrBoardShape}, t0)
	assert.True(t, eff.Finished)
	require.NotNil(t, st.Winner)
	assert.Equal(t, "alice", *st.Winner)
	assert.Equal(t, 0, st.Turn)
	assert.Equal(t, session.PhaseOver, st.Phase)
	assert.Equal(t, b1, st.Board)
}
