package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/lootsync/internal/metrics"
)

// client is one connected socket. Outbound frames go through send and are
// written by writeLoop only, so a slow peer never blocks a broadcast.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done     chan struct{}
	doneOnce sync.Once
}

func newClient(conn *websocket.Conn, queue int) *client {
	return &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// enqueue never blocks; a full queue drops the frame for this client.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		metrics.DroppedMessagesTotal.Inc()
		return false
	}
}

func (c *client) stop() { c.doneOnce.Do(func() { close(c.done) }) }

func (c *client) writeLoop(ctx context.Context, timeout time.Duration, log *zap.Logger) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Debug("ws_write_failed", zap.String("client", c.id), zap.Error(err))
				c.stop()
				_ = c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}
