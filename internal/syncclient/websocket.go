package syncclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/lootsync/internal/obslog"
	"github.com/park285/lootsync/pkg/lootdto"
)

var (
	ErrNotConnected = errors.New("sync socket not connected")
	ErrClosed       = errors.New("sync socket closed")
)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket follows a lootsync server and reconnects with exponential
// backoff when the connection drops.
type WebSocket struct {
	wsURL  string
	header http.Header
	log    *zap.Logger

	// connM also orders session starts against Close: stopCh is closed and
	// wg.Add is called only while it is held.
	conn   *websocket.Conn
	connM  sync.RWMutex
	writeM sync.Mutex

	state  State
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration
	dialTimeout          time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type Option func(*WebSocket)

func WithPingInterval(d time.Duration) Option {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.pingInterval = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.dialTimeout = d
		}
	}
}

func WithHeader(k, v string) Option {
	return func(ws *WebSocket) { ws.header.Set(k, v) }
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, opts ...Option) *WebSocket {
	ws := &WebSocket{
		wsURL:                wsURL,
		header:               http.Header{},
		log:                  obslog.Named("syncclient"),
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		dialTimeout:          10 * time.Second,
		stopCh:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ws)
	}
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	return ws
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.state == StateConnected || ws.state == StateConnecting {
		ws.stateM.Unlock()
		return nil
	}
	ws.stateM.Unlock()

	ws.setState(StateConnecting)
	conn, err := ws.dial(ctx)
	if err != nil {
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	if !ws.startSession(conn) {
		ws.setState(StateDisconnected)
		return ErrClosed
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, ws.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.header.Clone(),
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

// startSession installs conn and starts its reader and pinger. It returns
// false, closing conn, once Close has begun.
func (ws *WebSocket) startSession(conn *websocket.Conn) bool {
	ws.connM.Lock()
	if ws.isStopping() {
		ws.connM.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "close")
		return false
	}
	ws.conn = conn
	ws.wg.Add(2)
	ws.connM.Unlock()
	ws.setState(StateConnected)

	go ws.listen(conn)
	go ws.pingLoop(conn)
	return true
}

func (ws *WebSocket) currentConn() *websocket.Conn {
	ws.connM.RLock()
	defer ws.connM.RUnlock()
	return ws.conn
}

// dropConn closes conn if it is still the active one. Only the first caller
// for a given conn gets true.
func (ws *WebSocket) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) bool {
	ws.connM.Lock()
	if conn == nil || ws.conn != conn {
		ws.connM.Unlock()
		return false
	}
	ws.conn = nil
	ws.connM.Unlock()
	_ = conn.Close(code, reason)
	return true
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			if ws.isStopping() {
				return
			}
			if ws.dropConn(conn, websocket.StatusGoingAway, "reconnect") {
				ws.log.Warn("sync_read_failed", zap.Error(err))
				ws.setState(StateDisconnected)
				ws.scheduleReconnect()
			}
			return
		}

		ws.cbM.RLock()
		callbacks := make([]callbackEntry, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
			if ws.currentConn() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if ws.isStopping() {
					return
				}
				if ws.dropConn(conn, websocket.StatusGoingAway, "ping failure") {
					ws.setState(StateDisconnected)
					ws.scheduleReconnect()
				}
				return
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(ws.reconnectDelay, attempt)):
			}

			conn, err := ws.dial(ws.rootCtx)
			if err != nil {
				ws.log.Debug("sync_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.startSession(conn)
			return
		}
		ws.setState(StateFailed)
	}()
}

// backoffDuration doubles base per attempt, capped at 32x.
func backoffDuration(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

func (ws *WebSocket) SendItemUpdate(ctx context.Context, upd lootdto.ItemUpdate) error {
	upd.Type = lootdto.TypeItemUpdate
	upd.Item = nil
	return ws.writeJSON(ctx, upd)
}

func (ws *WebSocket) SendList(ctx context.Context, items []lootdto.LootEntry) error {
	if items == nil {
		items = []lootdto.LootEntry{}
	}
	return ws.writeJSON(ctx, lootdto.LootListUpdate{Type: lootdto.TypeLootListUpdate, Items: items})
}

// writeJSON serializes writers; wsjson.Write is not safe for concurrent use.
func (ws *WebSocket) writeJSON(ctx context.Context, v any) error {
	conn := ws.currentConn()
	if conn == nil || ws.State() != StateConnected {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(ctx, conn, v)
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

func (ws *WebSocket) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) setState(state State) {
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

// Close stops reconnecting, closes the socket and waits for the reader and
// pinger to exit.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.connM.Lock()
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.connM.Unlock()
	ws.rootCancel()
	if conn := ws.currentConn(); conn != nil {
		ws.dropConn(conn, websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(StateDisconnected)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

var _ Client = (*WebSocket)(nil)
