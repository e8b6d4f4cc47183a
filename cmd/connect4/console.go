package main

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/msgcat"
	"github.com/park285/connect4-client/internal/render"
	"github.com/park285/connect4-client/internal/session"
)

// console prints session changes for a human. It only announces what changed
// since the previous snapshot, so the board is not redrawn on every expiry tick.
type console struct {
	mu   sync.Mutex
	out  io.Writer
	cat  *msgcat.Catalog
	last session.Snapshot
	seen bool
}

func newConsole(out io.Writer, cat *msgcat.Catalog) *console {
	return &console{out: out, cat: cat}
}

func (c *console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked(s)
}

func (c *console) writeLocked(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, _ = io.WriteString(c.out, s)
}

func (c *console) onChange(snap session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.last
	if !c.seen || prev.MatchID != snap.MatchID {
		prev = session.Snapshot{}
	}
	c.last = snap
	c.seen = true

	if snap.Status == session.Connected && prev.Status != session.Connected && snap.LocalPlayer == 0 && snap.Winner == nil {
		c.writeLocked(c.cat.Text("match.waiting", nil))
	}
	if snap.Phase == session.PhaseMatched && prev.Phase != session.PhaseMatched {
		c.writeLocked(c.cat.Text("match.start", map[string]any{
			"P1":    snap.PlayerName(1),
			"P2":    snap.PlayerName(2),
			"Color": render.ColorName(snap.LocalPlayer),
		}))
	}

	boardChanged := snap.Board != prev.Board
	if boardChanged && snap.LocalPlayer != 0 && snap.Status != session.Disconnected {
		c.writeLocked(render.Board(snap, c.cat))
	}

	switch {
	case snap.Winner != nil && prev.Winner == nil:
		c.writeLocked(render.Status(snap, c.cat))
		if snap.Won() {
			c.writeLocked(c.cat.Text("match.you_won", nil))
		} else {
			c.writeLocked(c.cat.Text("match.you_lost", nil))
		}
	case snap.Winner == nil && snap.Status == session.Disconnected && prev.Status != session.Disconnected:
		c.writeLocked(c.cat.Text("match.disconnected", nil))
	case snap.Winner == nil && snap.LocalPlayer != 0 && (snap.Turn != prev.Turn || boardChanged):
		c.writeLocked(render.Status(snap, c.cat))
	}
}

// parseColumn accepts a bare column digit.
func parseColumn(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n >= board.Columns {
		return 0, false
	}
	return n, true
}

// moveRejection explains locally why a drop cannot be sent, or "" if it can.
func moveRejection(snap session.Snapshot, col int, cat *msgcat.Catalog) string {
	switch {
	case snap.Status != session.Connected:
		return cat.Text("match.not_connected", nil)
	case !snap.MyTurn():
		return cat.Text("match.not_your_turn", nil)
	case !snap.Board.ColumnOpen(col):
		return cat.Text("match.column_full", map[string]any{"Col": col})
	default:
		return ""
	}
}
