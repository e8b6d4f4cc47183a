// Package render draws session snapshots and the REST views for the terminal
// client, and the board as a PNG image.
package render

import (
	"sort"
	"strings"
	"time"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/c4fast"
	"github.com/park285/connect4-client/internal/history"
	"github.com/park285/connect4-client/internal/msgcat"
	"github.com/park285/connect4-client/internal/session"
)

// Board draws the grid, top row first. The inferred last move uses the
// lower-case marker while its presentation window is open.
func Board(snap session.Snapshot, cat *msgcat.Catalog) string {
	marks := map[board.Cell]string{
		board.Empty:     cat.Text("board.empty", nil),
		board.PlayerOne: cat.Text("board.p1", nil),
		board.PlayerTwo: cat.Text("board.p2", nil),
	}
	lastMarks := map[board.Cell]string{
		board.PlayerOne: cat.Text("board.last_p1", nil),
		board.PlayerTwo: cat.Text("board.last_p2", nil),
	}

	var sb strings.Builder
	sb.WriteString(cat.Text("board.header", nil))
	sb.WriteByte('\n')
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Columns; c++ {
			cell := snap.Board[r][c]
			mark := marks[cell]
			if mv := snap.LastMove; mv != nil && mv.Row == r && mv.Column == c {
				if lm, ok := lastMarks[cell]; ok {
					mark = lm
				}
			}
			sb.WriteByte(' ')
			sb.WriteString(mark)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Status is the one-line caption under the board.
func Status(snap session.Snapshot, cat *msgcat.Catalog) string {
	switch {
	case snap.Winner != nil:
		if snap.EndReason != "" {
			return cat.Text("match.winner_reason", map[string]any{"Winner": *snap.Winner, "Reason": snap.EndReason})
		}
		return cat.Text("match.winner", map[string]any{"Winner": *snap.Winner})
	case snap.Status == session.Disconnected:
		return cat.Text("match.disconnected", nil)
	case snap.LocalPlayer == 0:
		return cat.Text("match.waiting", nil)
	case snap.MyTurn():
		return cat.Text("match.your_turn", nil)
	default:
		return cat.Text("match.waiting_turn", map[string]any{"Name": snap.PlayerName(snap.Turn)})
	}
}

// ColorName is the disc colour of player id 1 or 2.
func ColorName(id int) string {
	if id == 1 {
		return "Red"
	}
	if id == 2 {
		return "Yellow"
	}
	return ""
}

// Leaderboard lists the entries in server order. myRank is the 1-based row of
// the local player, 0 when not listed.
func Leaderboard(entries []c4fast.LeaderboardEntry, myRank int, refreshedAt time.Time, cat *msgcat.Catalog) string {
	var sb strings.Builder
	sb.WriteString(cat.Text("leaderboard.title", nil))
	sb.WriteByte('\n')
	if len(entries) == 0 {
		sb.WriteString(cat.Text("leaderboard.empty", nil))
		sb.WriteByte('\n')
		return sb.String()
	}
	for i, e := range entries {
		sb.WriteString(cat.Text("leaderboard.row", map[string]any{
			"Rank":     i + 1,
			"Username": e.Username,
			"Wins":     e.Wins,
			"Me":       i+1 == myRank,
		}))
		sb.WriteByte('\n')
	}
	if !refreshedAt.IsZero() {
		sb.WriteString(cat.Text("leaderboard.updated", map[string]any{"At": refreshedAt.Format("15:04:05")}))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Stats renders the analytics summary: top winners by wins, then activity by hour.
func Stats(st *c4fast.Stats, cat *msgcat.Catalog) string {
	if st == nil {
		return cat.Text("stats.unavailable", nil) + "\n"
	}
	var sb strings.Builder
	sb.WriteString(cat.Text("stats.title", nil))
	sb.WriteByte('\n')
	sb.WriteString(cat.Text("stats.totals", map[string]any{"TotalGames": st.TotalGames, "AvgDuration": st.AvgDuration}))
	sb.WriteByte('\n')

	users := make([]string, 0, len(st.WinsPerUser))
	for u := range st.WinsPerUser {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		wi, wj := st.WinsPerUser[users[i]], st.WinsPerUser[users[j]]
		if wi != wj {
			return wi > wj
		}
		return users[i] < users[j]
	})
	if len(users) == 0 {
		sb.WriteString(cat.Text("stats.no_winners", nil))
		sb.WriteByte('\n')
	}
	for _, u := range users {
		sb.WriteString(cat.Text("stats.winner_row", map[string]any{"Username": u, "Wins": st.WinsPerUser[u]}))
		sb.WriteByte('\n')
	}

	hours := make([]int, 0, len(st.GamesPerHour))
	for h := range st.GamesPerHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	if len(hours) == 0 {
		sb.WriteString(cat.Text("stats.no_activity", nil))
		sb.WriteByte('\n')
	}
	for _, h := range hours {
		sb.WriteString(cat.Text("stats.hour_row", map[string]any{"Hour": h, "Count": st.GamesPerHour[h]}))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// History lists recorded matches, newest first.
func History(recs []history.MatchRecord, cat *msgcat.Catalog) string {
	var sb strings.Builder
	sb.WriteString(cat.Text("history.title", nil))
	sb.WriteByte('\n')
	if len(recs) == 0 {
		sb.WriteString(cat.Text("history.empty", nil))
		sb.WriteByte('\n')
		return sb.String()
	}
	for _, r := range recs {
		result := cat.Text("history.lost", nil)
		if r.Won {
			result = cat.Text("history.won", nil)
		}
		sb.WriteString(cat.Text("history.row", map[string]any{
			"When":     r.EndedAt.Local().Format("2006-01-02 15:04"),
			"Opponent": r.Opponent,
			"Result":   result,
			"Moves":    r.MoveCount,
		}))
		sb.WriteByte('\n')
	}
	return sb.String()
}
