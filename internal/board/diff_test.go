package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffSingleCell(t *testing.T) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			for _, p := range []Cell{PlayerOne, PlayerTwo} {
				prev := EmptyBoard()
				cur := prev
				cur[r][c] = p

				m, ok := Diff(prev, cur)
				if !assert.True(t, ok, "(%d,%d) p=%v", r, c, p) {
					return
				}
				assert.Equal(t, Move{Row: r, Column: c, Player: p}, m)
			}
		}
	}
}

func TestDiffOnPopulatedBoard(t *testing.T) {
	var prev Board
	prev[5][3] = PlayerOne
	prev[5][4] = PlayerTwo
	prev[4][3] = PlayerOne

	cur := prev
	cur[3][3] = PlayerTwo

	m, ok := Diff(prev, cur)
	assert.True(t, ok)
	assert.Equal(t, Move{Row: 3, Column: 3, Player: PlayerTwo}, m)
}

func TestDiffIdentical(t *testing.T) {
	var b Board
	b[5][0] = PlayerOne

	_, ok := Diff(b, b)
	assert.False(t, ok)

	_, ok = Diff(EmptyBoard(), EmptyBoard())
	assert.False(t, ok)
}

func TestDiffIgnoresCellsClearedToEmpty(t *testing.T) {
	var prev Board
	prev[5][2] = PlayerOne

	_, ok := Diff(prev, EmptyBoard())
	assert.False(t, ok)
}

func TestDiffMultipleChangesFirstRowMajorWins(t *testing.T) {
	prev := EmptyBoard()
	cur := prev
	cur[5][6] = PlayerOne
	cur[2][1] = PlayerTwo
	cur[2][5] = PlayerOne

	m, ok := Diff(prev, cur)
	assert.True(t, ok)
	assert.Equal(t, Move{Row: 2, Column: 1, Player: PlayerTwo}, m)
	assert.Equal(t, 3, ChangedCells(prev, cur))

	// deterministic across calls
	again, _ := Diff(prev, cur)
	assert.Equal(t, m, again)
}

func TestDiffOwnerChangeCounts(t *testing.T) {
	var prev Board
	prev[5][0] = PlayerOne
	cur := prev
	cur[5][0] = PlayerTwo

	m, ok := Diff(prev, cur)
	assert.True(t, ok)
	assert.Equal(t, Move{Row: 5, Column: 0, Player: PlayerTwo}, m)
}
