package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/msgcat"
	"github.com/park285/connect4-client/internal/session"
)

func newTestConsole(t *testing.T) (*console, *bytes.Buffer, *msgcat.Catalog) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	var buf bytes.Buffer
	return newConsole(&buf, cat), &buf, cat
}

func strp(s string) *string { return &s }

func TestConsoleAnnouncesMatchFlow(t *testing.T) {
	c, buf, _ := newTestConsole(t)

	snap := session.Snapshot{MatchID: "m", Username: "bob", Status: session.Connected, Phase: session.PhaseConnecting}
	c.onChange(snap)
	if !strings.Contains(buf.String(), "Waiting for an opponent") {
		t.Fatalf("missing waiting line: %q", buf.String())
	}

	snap.Phase = session.PhaseMatched
	snap.LocalPlayer = 2
	snap.Player1, snap.Player2 = strp("alice"), strp("bob")
	snap.Turn = 1
	buf.Reset()
	c.onChange(snap)
	out := buf.String()
	if !strings.Contains(out, "Match found: alice (Red) vs bob (Yellow). You are Yellow.") {
		t.Fatalf("missing start line: %q", out)
	}
	if !strings.Contains(out, "Waiting for alice...") {
		t.Fatalf("missing turn line: %q", out)
	}

	snap.Board[5][0] = board.PlayerOne
	snap.LastMove = &board.Move{Row: 5, Column: 0, Player: board.PlayerOne}
	snap.Turn = 2
	snap.Phase = session.PhaseInProgress
	buf.Reset()
	c.onChange(snap)
	out = buf.String()
	if !strings.Contains(out, " r . . . . . .") || !strings.Contains(out, "Your turn!") {
		t.Fatalf("missing board or turn: %q", out)
	}

	// move window expiry alone prints nothing
	snap.LastMove = nil
	buf.Reset()
	c.onChange(snap)
	if buf.Len() != 0 {
		t.Fatalf("expected silence on expiry, got %q", buf.String())
	}

	snap.Winner = strp("bob")
	snap.Turn = 0
	snap.Phase = session.PhaseOver
	buf.Reset()
	c.onChange(snap)
	if !strings.Contains(buf.String(), "You won!") {
		t.Fatalf("missing win line: %q", buf.String())
	}
}

func TestConsoleDisconnect(t *testing.T) {
	c, buf, _ := newTestConsole(t)
	snap := session.Snapshot{MatchID: "m", Username: "bob", Status: session.Connected, LocalPlayer: 1, Turn: 1}
	c.onChange(snap)
	buf.Reset()

	snap.Status = session.Disconnected
	snap.LocalPlayer = 1
	c.onChange(snap)
	if !strings.Contains(buf.String(), "Disconnected.") {
		t.Fatalf("missing disconnect line: %q", buf.String())
	}
}

func TestMoveRejection(t *testing.T) {
	_, _, cat := newTestConsole(t)
	snap := session.Snapshot{Status: session.Connected, LocalPlayer: 1, Turn: 1}
	if r := moveRejection(snap, 3, cat); r != "" {
		t.Fatalf("expected move allowed, got %q", r)
	}
	snap.Board[0][3] = board.PlayerTwo
	if r := moveRejection(snap, 3, cat); r != "Column 3 is full." {
		t.Fatalf("unexpected rejection %q", r)
	}
	snap.Turn = 2
	if r := moveRejection(snap, 2, cat); r != "It is not your turn." {
		t.Fatalf("unexpected rejection %q", r)
	}
	snap.Status = session.Disconnected
	if r := moveRejection(snap, 2, cat); !strings.HasPrefix(r, "Not connected") {
		t.Fatalf("unexpected rejection %q", r)
	}
}

func TestParseColumn(t *testing.T) {
	for in, want := range map[string]int{"0": 0, " 6 ": 6, "3": 3} {
		got, ok := parseColumn(in)
		if !ok || got != want {
			t.Fatalf("parseColumn(%q)=%d,%v", in, got, ok)
		}
	}
	for _, in := range []string{"7", "-1", "x", ""} {
		if _, ok := parseColumn(in); ok {
			t.Fatalf("parseColumn(%q) should fail", in)
		}
	}
}
