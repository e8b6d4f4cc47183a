package c4fast

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is a single-use realtime connection: one instance per match attempt.
// It never reconnects; a read failure ends the session with WSStateDisconnected.
type WebSocket struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	writeM sync.Mutex

	state  WebSocketState
	stateM sync.RWMutex
	used   bool

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	cbM      sync.RWMutex
	nextCbID int

	dialTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
	logger         *zap.Logger
}

type WSOption func(*WebSocket)

func WithDialTimeout(d time.Duration) WSOption {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.dialTimeout = d
		}
	}
}

// WithPingInterval enables keep-alive pings. Two consecutive failures close the socket.
func WithPingInterval(d time.Duration) WSOption {
	return func(ws *WebSocket) { ws.pingInterval = d }
}

func WithWSLogger(l *zap.Logger) WSOption {
	return func(ws *WebSocket) {
		if l != nil {
			ws.logger = l
		}
	}
}

func WithWSHeaderProvider(h HeaderProvider) WSOption {
	return func(ws *WebSocket) { ws.headerProvider = h }
}

func NewWebSocket(wsURL string, opts ...WSOption) *WebSocket {
	ws := &WebSocket{
		wsURL:        wsURL,
		state:        WSStateDisconnected,
		dialTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		stopCh:       make(chan struct{}),
		msgCbs:       make([]callbackEntry, 0),
		stateCbs:     make([]stateCallbackEntry, 0),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// MatchURL appends the username query parameter to the server's match endpoint.
func MatchURL(base, username string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", errors.New("match endpoint must use ws or wss")
	}
	q := u.Query()
	q.Set("username", username)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.used {
		ws.stateM.Unlock()
		return ErrAlreadyUsed
	}
	ws.used = true
	ws.stateM.Unlock()

	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.setState(WSStateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, ws.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		ws.rootCancel()
		ws.setState(WSStateFailed)
		return err
	}

	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(WSStateConnected)

	ws.wg.Add(1)
	go ws.listen(conn)
	if ws.pingInterval > 0 {
		ws.wg.Add(1)
		go ws.pingLoop(conn)
	}
	return nil
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		_, data, err := conn.Read(ws.rootCtx)
		if err != nil {
			if !ws.isStopping() {
				ws.logger.Info("ws_read_end",
					zap.Int("close_status", int(websocket.CloseStatus(err))),
					zap.Error(err),
				)
			}
			_ = ws.closeConn(websocket.StatusGoingAway, "read end")
			ws.finish()
			return
		}

		ws.cbM.RLock()
		callbacks := make([]callbackEntry, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(data)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			if consecutivePingFailures >= 2 {
				ws.logger.Warn("ws_ping_failure", zap.Error(err))
				// closing unblocks the read loop, which reports the disconnect
				_ = ws.closeConn(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// finish reports the terminal disconnect exactly once.
func (ws *WebSocket) finish() {
	ws.doneOnce.Do(func() {
		if ws.rootCancel != nil {
			ws.rootCancel()
		}
		ws.setState(WSStateDisconnected)
	})
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) State() WebSocketState {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// WriteJSON sends one frame. wsjson.Write is not safe for concurrent use, so
// writes are serialized here.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	if ws.State() != WSStateConnected {
		return ErrNotConnected
	}
	ws.connM.Lock()
	conn := ws.conn
	ws.connM.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, ws.writeTimeout)
		defer cancel()
	}

	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(wctx, conn, v)
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	_ = ws.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if ws.rootCancel != nil {
			ws.rootCancel()
		}
		return nil
	}
}

func (ws *WebSocket) closeConn(code websocket.StatusCode, reason string) error {
	ws.connM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.connM.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(code, reason)
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
