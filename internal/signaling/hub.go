package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
)

const wsWriteWait = 10 * time.Second

// Hub is the WebSocket Transport: it maps connection ids to live sockets,
// each with its own bounded FIFO outbound queue.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	conns  map[string]*wsConn
}

func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:     logger,
		metrics: m,
		conns:   make(map[string]*wsConn),
	}
}

// Send queues frame for connID. It never blocks: a full queue closes that
// connection as a slow consumer.
func (h *Hub) Send(connID string, frame Frame) bool {
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	if c.enqueue(frame) {
		return true
	}
	if !c.isClosed() {
		h.metrics.Inc(metrics.SendQueueOverflow)
		h.log.Warn("signaling send queue full, closing connection", "conn_id", connID)
		c.closeWith(websocket.CloseTryAgainLater, "send queue overflow")
	}
	return false
}

// register adds c unless the hub is closed. wg is incremented under the same
// lock that Close takes, so a registered connection is always waited for.
func (h *Hub) register(c *wsConn, wg *sync.WaitGroup) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	wg.Add(1)
	h.conns[c.id] = c
	return true
}

func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close rejects new connections and closes every live one. Disconnect
// cleanup still runs on each connection's own goroutine.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := lo.Values(h.conns)
	h.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

type wsConn struct {
	id   string
	ws   *websocket.Conn
	log  *slog.Logger
	send chan Frame

	closeOnce   sync.Once
	done        chan struct{}
	closeCode   int
	closeReason string
}

func newWSConn(id string, ws *websocket.Conn, queueSize int, logger *slog.Logger) *wsConn {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &wsConn{
		id:   id,
		ws:   ws,
		log:  logger,
		send: make(chan Frame, queueSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *wsConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// closeWith marks the connection closed with code. The write loop sends the
// close frame and tears the socket down, so this never blocks on I/O and is
// safe to call while a room is held. Only the first call has any effect.
func (c *wsConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// writeLoop drains the outbound queue in order and pings every pingInterval.
// It owns every write to the socket and closes it on exit.
func (c *wsConn) writeLoop(pingInterval time.Duration) {
	defer func() {
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeReason), time.Now().Add(time.Second))
		_ = c.ws.Close()
	}()

	var tick <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, f); err != nil {
				c.log.Debug("signaling write failed", "err", err)
				c.closeWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-tick:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				c.closeWith(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}
