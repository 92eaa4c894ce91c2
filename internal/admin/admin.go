// Package admin serves the analytics dashboard API: a cookie-based admin
// session and a single read endpoint aggregating stored analytics with the
// live room registry.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/analytics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/auth"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/httpserver"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/room"
)

const (
	CookieName = "admin_token"

	// RecentSessionLimit is how many session log rows the dashboard gets.
	RecentSessionLimit = 100

	maxLoginBodyBytes = 64 << 10
)

var validate = validator.New()

// RoomLister is the live room snapshot, normally the signaling coordinator.
type RoomLister interface {
	Rooms() []room.Info
}

type Config struct {
	Credentials  auth.Credentials
	Tokens       *auth.TokenIssuer
	Analytics    analytics.Reader
	Rooms        RoomLister
	CookieSecure bool
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Now          func() time.Time
}

type API struct {
	cfg Config
	log *slog.Logger
	mux *http.ServeMux
}

func New(cfg Config) *API {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &API{
		cfg: cfg,
		log: cfg.Logger.With("component", "admin"),
		mux: http.NewServeMux(),
	}
	a.mux.HandleFunc("POST /admin/login", a.handleLogin)
	a.mux.HandleFunc("POST /admin/logout", a.handleLogout)
	a.mux.HandleFunc("GET /admin/check", a.handleCheck)
	a.mux.Handle("GET /api/admin/analytics", a.requireAdmin(http.HandlerFunc(a.handleAnalytics)))
	return a
}

// Handler serves every admin route. Mount it under both /admin/ and
// /api/admin/.
func (a *API) Handler() http.Handler {
	return a.mux
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		httpserver.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid JSON"})
		return
	}

	err := validate.Struct(req)
	if err == nil {
		err = a.cfg.Credentials.Authenticate(req.Username, req.Password)
	}
	if err != nil {
		a.cfg.Metrics.Inc(metrics.AdminLoginFailed)
		a.log.Warn("admin login failed", "remote_addr", r.RemoteAddr, "err", err)
		httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
		return
	}

	token, _, err := a.cfg.Tokens.Issue(req.Username)
	if err != nil {
		a.log.Error("issue admin token", "err", err)
		httpserver.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal Server Error"})
		return
	}
	http.SetCookie(w, a.cookie(token, int(a.cfg.Tokens.TTL().Seconds())))
	a.log.Info("admin logged in", "username", req.Username, "remote_addr", r.RemoteAddr)
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		a.cfg.Tokens.Revoke(token)
	}
	http.SetCookie(w, a.cookie("", -1))
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	claims, err := a.verify(r)
	if err != nil {
		httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": true, "username": claims.Subject})
}

func (a *API) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// requestToken reads the session cookie, falling back to a bearer token for
// non-browser clients.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (a *API) verify(r *http.Request) (*auth.Claims, error) {
	return a.cfg.Tokens.Verify(requestToken(r))
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.verify(r); err != nil {
			if !errors.Is(err, auth.ErrMissingCredentials) {
				a.log.Debug("rejected admin token", "remote_addr", r.RemoteAddr, "err", err)
			}
			httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type dashboardStats struct {
	analytics.Stats
	UniqueUsers        int `json:"uniqueUsers"`
	CurrentOnlineCount int `json:"currentOnlineCount"`
	ActiveRooms        int `json:"activeRooms"`
}

type dashboard struct {
	Sessions      []analytics.SessionEvent `json:"sessions"`
	Stats         dashboardStats           `json:"stats"`
	CurrentOnline []analytics.OnlineUser   `json:"currentOnline"`
	Rooms         []room.Info              `json:"rooms"`
	Timestamp     string                   `json:"timestamp"`
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	d, err := a.dashboard()
	if err != nil {
		a.log.Error("load analytics", "err", err)
		httpserver.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal Server Error"})
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, d)
}

func (a *API) dashboard() (dashboard, error) {
	store := a.cfg.Analytics
	stats, err := store.Stats()
	if err != nil {
		return dashboard{}, err
	}
	sessions, err := store.RecentSessions(RecentSessionLimit)
	if err != nil {
		return dashboard{}, err
	}
	online, err := store.Online()
	if err != nil {
		return dashboard{}, err
	}
	unique, err := store.UniqueUsers()
	if err != nil {
		return dashboard{}, err
	}

	// Newest arrivals first.
	online = slices.Clone(online)
	slices.Reverse(online)

	var rooms []room.Info
	if a.cfg.Rooms != nil {
		rooms = a.cfg.Rooms.Rooms()
	}
	if sessions == nil {
		sessions = []analytics.SessionEvent{}
	}
	if online == nil {
		online = []analytics.OnlineUser{}
	}
	if rooms == nil {
		rooms = []room.Info{}
	}

	return dashboard{
		Sessions: sessions,
		Stats: dashboardStats{
			Stats:              stats,
			UniqueUsers:        unique,
			CurrentOnlineCount: len(online),
			ActiveRooms:        len(rooms),
		},
		CurrentOnline: online,
		Rooms:         rooms,
		Timestamp:     a.cfg.Now().UTC().Format(isoMillis),
	}, nil
}
