package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/lootsync/internal/history"
	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/internal/metrics"
	"github.com/park285/lootsync/internal/obslog"
	"github.com/park285/lootsync/pkg/lootdto"
)

const (
	defaultQueueSize    = 64
	defaultWriteTimeout = 5 * time.Second
	defaultReadLimit    = 1 << 20
	historyTimeout      = 5 * time.Second
)

// Appender records finalized assignments.
type Appender interface {
	Append(ctx context.Context, rec history.Record) error
}

type Option func(*Hub)

// WithOriginPatterns restricts accepted Origin headers. Without patterns any
// origin is accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = append(h.origins, patterns...) }
}

func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// Hub owns the live loot list and fans every change out to connected clients.
type Hub struct {
	state    *loot.State
	history  Appender
	validate *validator.Validate
	log      *zap.Logger

	origins      []string
	queueSize    int
	writeTimeout time.Duration

	// applyM is held across mutate+enqueue so every client sees changes in
	// mutation order.
	applyM sync.Mutex

	clientsM sync.RWMutex
	clients  map[*client]struct{}
}

func New(state *loot.State, hist Appender, opts ...Option) *Hub {
	if state == nil {
		state = loot.NewState()
	}
	if hist == nil {
		hist = history.Nop{}
	}
	h := &Hub{
		state:        state,
		history:      hist,
		validate:     validator.New(),
		log:          obslog.Named("hub"),
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) State() *loot.State { return h.state }

func (h *Hub) ClientCount() int {
	h.clientsM.RLock()
	defer h.clientsM.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request, sends the current snapshot and then serves
// inbound messages until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		h.log.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(defaultReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(conn, h.queueSize)
	h.register(c)
	defer h.unregister(c)

	go c.writeLoop(ctx, h.writeTimeout, h.log)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) {
				h.log.Debug("ws_read_failed", zap.String("client", c.id), zap.Error(err))
			}
			break
		}
		h.dispatch(ctx, c, data)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// register adds c and queues the snapshot under applyM, so no broadcast can
// slip in ahead of it.
func (h *Hub) register(c *client) {
	h.applyM.Lock()
	defer h.applyM.Unlock()

	if msg, err := encodeList(h.state.Snapshot()); err == nil {
		c.enqueue(msg)
	} else {
		h.log.Error("snapshot_encode_failed", zap.Error(err))
	}

	h.clientsM.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.clientsM.Unlock()

	metrics.WSClients.Inc()
	h.log.Info("client_connected", zap.String("client", c.id), zap.Int("clients", n))
}

func (h *Hub) unregister(c *client) {
	h.clientsM.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.clientsM.Unlock()

	c.stop()
	if ok {
		metrics.WSClients.Dec()
		h.log.Info("client_disconnected", zap.String("client", c.id), zap.Int("clients", n))
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, data []byte) {
	var env lootdto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.drop(c, "invalid_json", err)
		return
	}
	if err := h.validate.Struct(env); err != nil {
		h.drop(c, "unknown_type", err)
		return
	}

	switch env.Type {
	case lootdto.TypeLootListUpdate:
		var msg lootdto.LootListUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			h.drop(c, "invalid_json", err)
			return
		}
		if err := h.validate.Struct(msg); err != nil {
			h.drop(c, "invalid_list", err)
			return
		}
		h.PublishSnapshot(loot.FromDTOs(msg.Items))
	case lootdto.TypeItemUpdate:
		var msg lootdto.ItemUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			h.drop(c, "invalid_json", err)
			return
		}
		if err := h.validate.Struct(msg); err != nil {
			h.drop(c, "invalid_item_update", err)
			return
		}
		if msg.Index == nil && msg.ID == "" {
			h.drop(c, "invalid_item_update", errors.New("index or id is required"))
			return
		}
		ref := loot.Ref{ID: msg.ID, Index: -1}
		if msg.Index != nil {
			ref.Index = *msg.Index
		}
		h.patch(ctx, c, ref, msg.Recipient, msg.Distributed)
	}
}

func (h *Hub) drop(c *client, reason string, err error) {
	h.log.Warn("ws_message_dropped", zap.String("client", c.id), zap.String("reason", reason), zap.Error(err))
}

// PublishSnapshot replaces the whole list and sends the stored snapshot, with
// server-assigned ids, to every client.
func (h *Hub) PublishSnapshot(entries []loot.Entry) []loot.Entry {
	h.applyM.Lock()
	defer h.applyM.Unlock()

	stored := h.state.Replace(entries)
	h.broadcastListLocked(stored)
	return stored
}

// Patch applies an item update that did not come from a connected client.
func (h *Hub) Patch(ctx context.Context, ref loot.Ref, recipient string, distributed bool) (loot.PatchResult, bool) {
	return h.patch(ctx, nil, ref, recipient, distributed)
}

func (h *Hub) patch(ctx context.Context, from *client, ref loot.Ref, recipient string, distributed bool) (loot.PatchResult, bool) {
	h.applyM.Lock()
	res, ok := h.state.Patch(ref, recipient, distributed)
	if !ok {
		h.applyM.Unlock()
		metrics.PatchesTotal.WithLabelValues(metrics.ResultNoop).Inc()
		h.log.Debug("patch_ignored", zap.String("id", ref.ID), zap.Int("index", ref.Index))
		return res, false
	}
	item := loot.ToDTO(res.Entry)
	index := res.Index
	msg, err := json.Marshal(lootdto.ItemUpdate{
		Type:        lootdto.TypeItemUpdate,
		Index:       &index,
		ID:          res.Entry.ID,
		Recipient:   res.Entry.Recipient,
		Distributed: res.Entry.Distributed,
		Item:        &item,
	})
	if err != nil {
		h.applyM.Unlock()
		h.log.Error("item_update_encode_failed", zap.Error(err))
		return res, true
	}
	h.broadcastLocked(lootdto.TypeItemUpdate, msg, from)
	h.applyM.Unlock()

	if res.Finalized {
		metrics.PatchesTotal.WithLabelValues(metrics.ResultFinal).Inc()
		h.record(ctx, res.Entry)
	} else {
		metrics.PatchesTotal.WithLabelValues(metrics.ResultOK).Inc()
	}
	return res, true
}

// record never fails the patch; the broadcast has already gone out.
func (h *Hub) record(ctx context.Context, e loot.Entry) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := h.history.Append(hctx, history.NewRecord(e.ItemName, e.Recipient)); err != nil {
		metrics.HistoryErrorsTotal.Inc()
		h.log.Error("history_append_failed",
			zap.String("item", e.ItemName),
			zap.String("recipient", e.Recipient),
			zap.Error(err),
		)
		return
	}
	h.log.Info("loot_distributed", zap.String("item", e.ItemName), zap.String("recipient", e.Recipient))
}

func (h *Hub) broadcastListLocked(entries []loot.Entry) {
	msg, err := encodeList(entries)
	if err != nil {
		h.log.Error("snapshot_encode_failed", zap.Error(err))
		return
	}
	h.broadcastLocked(lootdto.TypeLootListUpdate, msg, nil)
}

// broadcastLocked enqueues msg for every client except skip. Callers hold applyM.
func (h *Hub) broadcastLocked(kind string, msg []byte, skip *client) {
	h.clientsM.RLock()
	defer h.clientsM.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(kind).Inc()
	for c := range h.clients {
		if c == skip {
			continue
		}
		if !c.enqueue(msg) {
			h.log.Warn("ws_message_dropped", zap.String("client", c.id), zap.String("reason", "queue_full"))
		}
	}
}

func encodeList(entries []loot.Entry) ([]byte, error) {
	return json.Marshal(lootdto.LootListUpdate{
		Type:  lootdto.TypeLootListUpdate,
		Items: loot.ToDTOs(entries),
	})
}
