package c4fast

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/park285/connect4-client/internal/c4fast/c4fasttest"
)

func TestGetLeaderboard(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	srv.SetLeaderboard([]map[string]any{
		{"username": "alice", "wins": 7},
		{"username": "bob", "wins": 3},
	})

	c := NewClient(srv.URL(), WithTimeout(2*time.Second))
	entries, err := c.GetLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0] != (LeaderboardEntry{Username: "alice", Wins: 7}) {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestClientSendsProvidedHeaders(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	c := NewClient(srv.URL()+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"User-Agent": "connect4-test", "X-Empty": " "}
	}))
	if c.BaseURL() != srv.URL() {
		t.Fatalf("base url not normalized: %q", c.BaseURL())
	}
	if _, err := c.GetLeaderboard(context.Background()); err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	hdr := srv.LastHeader()
	if got := hdr.Get("User-Agent"); got != "connect4-test" {
		t.Fatalf("user agent %q", got)
	}
	if _, ok := hdr["X-Empty"]; ok {
		t.Fatalf("blank header value must be skipped")
	}
}

func TestGetLeaderboardNullBody(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	srv.SetLeaderboard(nil)

	entries, err := NewClient(srv.URL()).GetLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestGetStats(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	srv.SetStats(map[string]any{
		"totalGames":   4,
		"avgDuration":  31.5,
		"winsPerUser":  map[string]int{"alice": 3, "Bot_AI": 1},
		"gamesPerHour": map[string]int{"14": 3, "15": 1},
	})

	st, err := NewClient(srv.URL()).GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.TotalGames != 4 || st.AvgDuration != 31.5 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	if st.WinsPerUser["alice"] != 3 || st.GamesPerHour[14] != 3 {
		t.Fatalf("unexpected maps: %+v", st)
	}
}

func TestGetStatsServerError(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	srv.FailWith(http.StatusServiceUnavailable)

	c := NewClient(srv.URL(), WithRetry(2))
	if _, err := c.GetStats(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if hits := srv.StatsHits.Load(); hits != 2 {
		t.Fatalf("expected 2 attempts on 503, got %d", hits)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	srv.FailWith(http.StatusNotFound)

	if _, err := NewClient(srv.URL()).GetLeaderboard(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if hits := srv.LeaderboardHits.Load(); hits != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", hits)
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff must cap at attempt 6")
	}
}
