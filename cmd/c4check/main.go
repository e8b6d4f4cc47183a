package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	appcfg "github.com/park285/connect4-client/internal/config"
	"github.com/park285/connect4-client/internal/c4fast"
	"github.com/park285/connect4-client/internal/obslog"
	"github.com/park285/connect4-client/internal/protocol"
)

func main() {
	_ = godotenv.Load()
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	headers := c4fast.HeaderProvider(cfg.RequestHeaders)
	api := c4fast.NewClient(cfg.ServerAPIURL, c4fast.WithTimeout(cfg.HTTPTimeout()), c4fast.WithHeaderProvider(headers))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := api.GetLeaderboard(ctx)
	if err != nil {
		log.Printf("%s/leaderboard error: %v", api.BaseURL(), err)
	} else {
		log.Printf("%s/leaderboard ok: %d entries", api.BaseURL(), len(entries))
	}

	analytics := c4fast.NewClient(cfg.AnalyticsURL, c4fast.WithTimeout(cfg.HTTPTimeout()), c4fast.WithHeaderProvider(headers))
	st, err := analytics.GetStats(ctx)
	if err != nil {
		log.Printf("%s/stats error: %v", analytics.BaseURL(), err)
	} else {
		log.Printf("%s/stats ok: games=%d avg=%.1fs users=%d", analytics.BaseURL(), st.TotalGames, st.AvgDuration, len(st.WinsPerUser))
	}

	username := cfg.PlayerName
	if username == "" {
		username = fmt.Sprintf("probe-%d", os.Getpid())
	}
	target, err := c4fast.MatchURL(cfg.ServerWSURL, username)
	if err != nil {
		log.Printf("ws url error: %v", err)
		return
	}

	ws := c4fast.NewWebSocket(target,
		c4fast.WithDialTimeout(cfg.DialTimeout()),
		c4fast.WithPingInterval(cfg.PingInterval()),
		c4fast.WithWSLogger(obslog.L()),
		c4fast.WithWSHeaderProvider(headers),
	)
	ws.OnStateChange(func(state c4fast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(raw []byte) {
		msg, err := protocol.Decode(raw)
		if err != nil {
			log.Printf("WS frame rejected: %v (%q)", err, raw)
			return
		}
		log.Printf("WS %s: %+v", msg.Kind(), msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), cfg.DialTimeout())
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
