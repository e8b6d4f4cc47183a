package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(fill func(r, c int) int) [][]int {
	out := make([][]int, Rows)
	for r := range out {
		out[r] = make([]int, Columns)
		for c := range out[r] {
			out[r][c] = fill(r, c)
		}
	}
	return out
}

func TestFromRows(t *testing.T) {
	t.Run("valid grid", func(t *testing.T) {
		b, err := FromRows(rows(func(r, c int) int {
			if r == 5 && c == 3 {
				return 2
			}
			return 0
		}))
		require.NoError(t, err)
		assert.Equal(t, PlayerTwo, b[5][3])
		assert.Equal(t, 1, b.Discs())
	})

	t.Run("five rows", func(t *testing.T) {
		_, err := FromRows(rows(func(int, int) int { return 0 })[:5])
		assert.ErrorIs(t, err, ErrBoardShape)
	})

	t.Run("short row", func(t *testing.T) {
		g := rows(func(int, int) int { return 0 })
		g[2] = g[2][:6]
		_, err := FromRows(g)
		assert.ErrorIs(t, err, ErrBoardShape)
	})

	t.Run("unknown cell value", func(t *testing.T) {
		g := rows(func(int, int) int { return 0 })
		g[0][0] = 3
		_, err := FromRows(g)
		assert.ErrorIs(t, err, ErrCellValue)
	})

	t.Run("nil grid", func(t *testing.T) {
		_, err := FromRows(nil)
		assert.ErrorIs(t, err, ErrBoardShape)
	})
}

func TestFlattenRowMajor(t *testing.T) {
	var b Board
	b[1][0] = PlayerOne
	b[0][6] = PlayerTwo

	flat := b.Flatten()
	assert.Equal(t, PlayerTwo, flat[6])
	assert.Equal(t, PlayerOne, flat[7])
}

func TestBoardHelpers(t *testing.T) {
	b := EmptyBoard()
	assert.True(t, b.IsEmpty())
	assert.True(t, b.ColumnOpen(0))
	assert.False(t, b.ColumnOpen(7))
	assert.False(t, b.ColumnOpen(-1))

	b[0][4] = PlayerOne
	assert.False(t, b.IsEmpty())
	assert.False(t, b.ColumnOpen(4))
	assert.Equal(t, "0000100/0000000/0000000/0000000/0000000/0000000", b.String())
}

func TestBoardIsValueType(t *testing.T) {
	a := EmptyBoard()
	b := a
	b[5][5] = PlayerOne
	assert.True(t, a.IsEmpty(), "copy must not alias the original")
}

func TestGridRoundTrip(t *testing.T) {
	src := rows(func(r, c int) int { return (r + c) % 3 })
	b, err := FromRows(src)
	require.NoError(t, err)
	assert.Equal(t, src, b.Grid())
}
