package signaling

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/origin"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/session"
)

const (
	defaultIdleTimeout  = 60 * time.Second
	defaultPingInterval = 20 * time.Second
)

// Config wires the WebSocket surface to the coordinator.
type Config struct {
	Coordinator *Coordinator
	// Hub must be the Coordinator's Transport.
	Hub         *Hub
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	AllowedOrigins []string

	IdleTimeout  time.Duration
	PingInterval time.Duration

	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	SendQueueSize        int

	// NewConnID overrides connection id generation in tests.
	NewConnID func() string
}

// Server serves GET /socket.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	wg sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PingInterval >= cfg.IdleTimeout {
		cfg.PingInterval = cfg.IdleTimeout / 3
	}
	if cfg.NewConnID == nil {
		cfg.NewConnID = uuid.NewString
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger.With("component", "signaling"),
		upgrader: websocket.Upgrader{
			// Origin is enforced before Upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /socket", s.handleSocket)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Close closes every live connection and waits for their disconnect cleanup.
func (s *Server) Close() {
	s.cfg.Hub.Close()
	s.wg.Wait()
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	if _, ok := origin.CheckRequest(r, s.cfg.AllowedOrigins); !ok {
		s.cfg.Metrics.Inc(metrics.WSRejected)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	connID := s.cfg.NewConnID()
	log := s.log.With("conn_id", connID)
	c := newWSConn(connID, ws, s.cfg.SendQueueSize, log)
	if !s.cfg.Hub.register(c, &s.wg) {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}
	defer s.wg.Done()
	s.cfg.Metrics.Inc(metrics.WSConnections)
	log.Debug("signaling connection opened", "remote_addr", r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writeLoop(s.cfg.PingInterval)
	}()

	s.cfg.Coordinator.Connect(connID, session.ClientInfo{
		UserAgent:   r.UserAgent(),
		RemoteIP:    clientIP(r),
		ConnectedAt: time.Now(),
	})

	s.readLoop(c, log)

	c.closeWith(websocket.CloseNormalClosure, "")
	s.cfg.Hub.unregister(connID)
	s.cfg.Coordinator.Disconnect(connID)
	s.cfg.Metrics.Inc(metrics.WSDisconnects)
	log.Debug("signaling connection closed")
}

func (s *Server) readLoop(c *wsConn, log *slog.Logger) {
	ws := c.ws
	if s.cfg.MaxMessageBytes > 0 {
		ws.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	idle := s.cfg.IdleTimeout
	_ = ws.SetReadDeadline(time.Now().Add(idle))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(idle))
	})

	var limiter *rate.Limiter
	if n := s.cfg.MaxMessagesPerSecond; n > 0 {
		limiter = rate.NewLimiter(rate.Limit(n), n)
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Info("signaling message too large", "limit_bytes", s.cfg.MaxMessageBytes)
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && !c.isClosed() {
				log.Debug("signaling read failed", "err", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(idle))

		// Limit after the read so the peer sees the close code instead of a
		// reset caused by unread data.
		if limiter != nil && !limiter.Allow() {
			s.cfg.Metrics.Inc(metrics.RateLimited)
			log.Info("signaling rate limit exceeded")
			c.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			s.cfg.Metrics.Inc(metrics.EventsMalformed)
			continue
		}
		s.cfg.Coordinator.HandleMessage(c.id, data)
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
