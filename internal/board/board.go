package board

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Rows    = 6
	Columns = 7
	Cells   = Rows * Columns
)

// Cell is the occupancy of a single grid position.
type Cell int

const (
	Empty     Cell = 0
	PlayerOne Cell = 1
	PlayerTwo Cell = 2
)

func (c Cell) Valid() bool { return c >= Empty && c <= PlayerTwo }

func (c Cell) String() string {
	switch c {
	case Empty:
		return "empty"
	case PlayerOne:
		return "p1"
	case PlayerTwo:
		return "p2"
	default:
		return fmt.Sprintf("cell(%d)", int(c))
	}
}

var (
	ErrBoardShape = errors.New("board must be 6 rows of 7 columns")
	ErrCellValue  = errors.New("board cell out of range")
)

// Board is a full grid snapshot. It is a value type: assignment copies.
type Board [Rows][Columns]Cell

// EmptyBoard returns the initial grid.
func EmptyBoard() Board { return Board{} }

// FromRows converts a decoded wire grid, rejecting any other shape.
func FromRows(rows [][]int) (Board, error) {
	var b Board
	if len(rows) != Rows {
		return b, fmt.Errorf("%w: got %d rows", ErrBoardShape, len(rows))
	}
	for r, row := range rows {
		if len(row) != Columns {
			return b, fmt.Errorf("%w: row %d has %d columns", ErrBoardShape, r, len(row))
		}
		for c, v := range row {
			cell := Cell(v)
			if !cell.Valid() {
				return b, fmt.Errorf("%w: %d at (%d,%d)", ErrCellValue, v, r, c)
			}
			b[r][c] = cell
		}
	}
	return b, nil
}

// Grid is the inverse of FromRows.
func (b Board) Grid() [][]int {
	out := make([][]int, Rows)
	for r := range out {
		out[r] = make([]int, Columns)
		for c := range out[r] {
			out[r][c] = int(b[r][c])
		}
	}
	return out
}

// Flatten returns the cells in row-major order.
func (b Board) Flatten() [Cells]Cell {
	var out [Cells]Cell
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			out[r*Columns+c] = b[r][c]
		}
	}
	return out
}

func (b Board) IsEmpty() bool { return b == Board{} }

// Discs counts occupied cells.
func (b Board) Discs() int {
	n := 0
	for _, cell := range b.Flatten() {
		if cell != Empty {
			n++
		}
	}
	return n
}

// ColumnOpen reports whether the top cell of col is still free.
func (b Board) ColumnOpen(col int) bool {
	if col < 0 || col >= Columns {
		return false
	}
	return b[0][col] == Empty
}

// String dumps the grid as rows of digits separated by '/', for logs.
func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(Cells + Rows)
	for r := 0; r < Rows; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < Columns; c++ {
			sb.WriteByte(byte('0' + b[r][c]))
		}
	}
	return sb.String()
}

// Move is a single inferred disc placement.
type Move struct {
	Row    int  `json:"row"`
	Column int  `json:"col"`
	Player Cell `json:"player"`
}
