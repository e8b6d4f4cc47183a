package c4fast

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/park285/connect4-client/internal/c4fast/c4fasttest"
)

func dialTestSocket(t *testing.T, srv *c4fasttest.Server, username string) (*WebSocket, chan WebSocketState, chan []byte) {
	t.Helper()
	u, err := MatchURL(srv.WSURL(), username)
	if err != nil {
		t.Fatalf("MatchURL: %v", err)
	}
	ws := NewWebSocket(u, WithDialTimeout(2*time.Second))
	states := make(chan WebSocketState, 8)
	frames := make(chan []byte, 8)
	ws.OnStateChange(func(s WebSocketState) { states <- s })
	ws.OnMessage(func(raw []byte) { frames <- raw })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer ccancel()
		_ = ws.Close(cctx)
	})
	return ws, states, frames
}

func expectState(t *testing.T, ch chan WebSocketState, want WebSocketState) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("state %q not observed", want)
		}
	}
}

func TestMatchURL(t *testing.T) {
	got, err := MatchURL("ws://localhost:8080/ws", "al ice&co")
	if err != nil {
		t.Fatalf("MatchURL: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("username") != "al ice&co" || u.Path != "/ws" {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := MatchURL("http://localhost/ws", "a"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestWebSocketReceivesAndSends(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	ws, states, frames := dialTestSocket(t, srv, "alice")
	peer := srv.Accept()

	expectState(t, states, WSStateConnected)
	if peer.Username != "alice" {
		t.Fatalf("server saw username %q", peer.Username)
	}

	peer.Send(t, `{"type":"START","p1":"alice","p2":"bob"}`)
	select {
	case raw := <-frames:
		if string(raw) != `{"type":"START","p1":"alice","p2":"bob"}` {
			t.Fatalf("unexpected frame %s", raw)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("frame not delivered")
	}

	if err := ws.WriteJSON(context.Background(), map[string]int{"col": 3}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(peer.Next(t), &got); err != nil || got["col"] != 3 {
		t.Fatalf("server got %v (%v)", got, err)
	}
}

func TestWebSocketServerCloseReportsDisconnect(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	ws, states, _ := dialTestSocket(t, srv, "alice")
	peer := srv.Accept()
	expectState(t, states, WSStateConnected)

	peer.Drop()
	expectState(t, states, WSStateDisconnected)

	if err := ws.WriteJSON(context.Background(), map[string]int{"col": 1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestWebSocketSingleUse(t *testing.T) {
	srv := c4fasttest.NewServer(t)
	ws, _, _ := dialTestSocket(t, srv, "alice")
	srv.Accept()
	if err := ws.Connect(context.Background()); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws?username=a", WithDialTimeout(time.Second))
	states := make(chan WebSocketState, 4)
	ws.OnStateChange(func(s WebSocketState) { states <- s })

	if err := ws.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	expectState(t, states, WSStateFailed)
	if ws.State() != WSStateFailed {
		t.Fatalf("state=%s", ws.State())
	}
}

func TestRemoveMessageCallback(t *testing.T) {
	ws := NewWebSocket("ws://example.invalid/ws")
	a := ws.OnMessage(func([]byte) {})
	b := ws.OnMessage(func([]byte) {})
	if a == b {
		t.Fatalf("callback ids must be unique")
	}
	ws.RemoveMessageCallback(a)
	if len(ws.msgCbs) != 1 || ws.msgCbs[0].id != b {
		t.Fatalf("unexpected callbacks after removal: %+v", ws.msgCbs)
	}
}
