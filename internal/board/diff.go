package board

// Diff infers the most recent move from two snapshots. It reports the first
// row-major index whose value changed to a non-empty cell. Only one disc is
// expected per snapshot; extra changes are not detected here (see ChangedCells).
// The result is advisory and must not drive game logic.
func Diff(prev, cur Board) (Move, bool) {
	p := prev.Flatten()
	c := cur.Flatten()
	for i := range c {
		if c[i] != p[i] && c[i] != Empty {
			row, col := i/Columns, i%Columns
			return Move{Row: row, Column: col, Player: cur[row][col]}, true
		}
	}
	return Move{}, false
}

// ChangedCells counts the cells that Diff would consider as new discs.
func ChangedCells(prev, cur Board) int {
	p := prev.Flatten()
	c := cur.Flatten()
	n := 0
	for i := range c {
		if c[i] != p[i] && c[i] != Empty {
			n++
		}
	}
	return n
}
