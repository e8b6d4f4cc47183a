package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appcfg "github.com/park285/connect4-client/internal/config"
	"github.com/park285/connect4-client/internal/c4fast"
	"github.com/park285/connect4-client/internal/history"
	"github.com/park285/connect4-client/internal/leaderboard"
	"github.com/park285/connect4-client/internal/match"
	"github.com/park285/connect4-client/internal/msgcat"
	"github.com/park285/connect4-client/internal/obslog"
	"github.com/park285/connect4-client/internal/render"
	"github.com/park285/connect4-client/internal/session"
)

type app struct {
	cfg     *appcfg.AppConfig
	cat     *msgcat.Catalog
	logger  *zap.Logger
	leaders *leaderboard.Service
	store   history.Store
	mgr     *match.Manager
	ui      *console

	username string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	headers := c4fast.HeaderProvider(cfg.RequestHeaders)
	api := c4fast.NewClient(cfg.ServerAPIURL, c4fast.WithTimeout(cfg.HTTPTimeout()), c4fast.WithHeaderProvider(headers))
	analytics := c4fast.NewClient(cfg.AnalyticsURL, c4fast.WithTimeout(cfg.HTTPTimeout()), c4fast.WithHeaderProvider(headers))
	leaders := leaderboard.NewService(api, analytics, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := history.Open(ctx, cfg.DatabaseURL, cfg.RedisURL, logger)
	cancel()
	if err != nil {
		logger.Warn("history_store_fallback", zap.Error(err))
		store = history.NewMemoryStore()
	}
	defer func() { _ = store.Close() }()

	sess := session.New(session.WithMoveWindow(cfg.MoveHighlight()))
	mgr := match.NewManager(cfg.ServerWSURL,
		match.WithSession(sess),
		match.WithLogger(logger),
		match.WithDialTimeout(cfg.DialTimeout()),
		match.WithPingInterval(cfg.PingInterval()),
		match.WithHeaders(headers),
		match.WithLeaderboard(leaders),
		match.WithRecorder(history.NewRecorder(store)),
	)

	a := &app{
		cfg:     cfg,
		cat:     cat,
		logger:  logger,
		leaders: leaders,
		store:   store,
		mgr:     mgr,
		ui:      newConsole(os.Stdout, cat),
	}
	mgr.OnChange(a.ui.onChange)

	go func() {
		rctx, rcancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout())
		defer rcancel()
		_ = leaders.Refresh(rctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	a.ui.println(cat.Text("app.title", nil))
	if a.promptUsername(lines, sigCh) {
		a.ui.println(cat.Text("app.help", nil))
		a.connect()
		a.run(lines, sigCh)
	}

	a.ui.println(cat.Text("app.bye", nil))
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := mgr.Close(sctx); err != nil {
		logger.Debug("shutdown", zap.Error(err))
	}
}

// promptUsername asks until a name is given; false means stdin closed or a signal arrived.
func (a *app) promptUsername(lines <-chan string, sigCh <-chan os.Signal) bool {
	a.username = a.cfg.PlayerName
	for a.username == "" {
		fmt.Print(a.cat.Text("app.prompt_username", nil))
		select {
		case <-sigCh:
			fmt.Println()
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			a.username = strings.TrimSpace(line)
		}
	}
	return true
}

func (a *app) run(lines <-chan string, sigCh <-chan os.Signal) {
	for {
		select {
		case <-sigCh:
			return
		case line, ok := <-lines:
			if !ok || !a.handle(line) {
				return
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

func (a *app) connect() {
	a.ui.println(a.cat.Text("match.connecting", map[string]any{"Username": a.username}))
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.DialTimeout())
	defer cancel()
	if err := a.mgr.Connect(ctx, a.username); err != nil {
		a.ui.println(a.cat.Text("match.connect_failed", map[string]any{"Error": err.Error()}))
	}
}

// handle runs one command line; false means quit.
func (a *app) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd := strings.ToLower(fields[0])
	if col, ok := parseColumn(cmd); ok {
		a.drop(col)
		return true
	}

	switch cmd {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		a.ui.println(a.cat.Text("app.help", nil))
	case "board":
		snap := a.mgr.Snapshot()
		a.ui.println(render.Board(snap, a.cat) + render.Status(snap, a.cat))
	case "leaders":
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout())
		_ = a.leaders.Refresh(ctx)
		cancel()
		a.ui.println(render.Leaderboard(a.leaders.Entries(), a.leaders.Rank(a.username), a.leaders.RefreshedAt(), a.cat))
	case "stats":
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout())
		st, err := a.leaders.Stats(ctx)
		cancel()
		if err != nil {
			st = nil
		}
		a.ui.println(render.Stats(st, a.cat))
	case "history":
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout())
		recs, err := a.store.Recent(ctx, a.username, a.cfg.HistoryLimit)
		cancel()
		if err != nil {
			a.logger.Warn("history_read_failed", zap.Error(err))
		}
		a.ui.println(render.History(recs, a.cat))
	case "snapshot":
		path := "connect4.png"
		if len(fields) > 1 {
			path = fields[1]
		}
		a.snapshot(path)
	case "again", "new":
		a.connect()
	default:
		a.ui.println(a.cat.Text("app.unknown_command", map[string]any{"Input": cmd}))
	}
	return true
}

func (a *app) drop(col int) {
	snap := a.mgr.Snapshot()
	if reason := moveRejection(snap, col, a.cat); reason != "" {
		a.ui.println(reason)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.mgr.SendMove(ctx, col); err != nil && !errors.Is(err, match.ErrInvalidColumn) {
		a.logger.Warn("send_move_failed", zap.Int("col", col), zap.Error(err))
	}
}

func (a *app) snapshot(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := render.PNG(ctx, a.mgr.Snapshot(), render.PNGOptions{})
	if err == nil {
		err = os.WriteFile(path, raw, 0o644)
	}
	if err != nil {
		a.ui.println(a.cat.Text("snapshot.failed", map[string]any{"Error": err.Error()}))
		return
	}
	a.ui.println(a.cat.Text("snapshot.saved", map[string]any{"Path": path}))
}
