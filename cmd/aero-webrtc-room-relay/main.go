package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/admin"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/analytics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/auth"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/httpserver"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/room"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/session"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/signaling"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/turnrest"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	// Variables already in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting aero-webrtc-room-relay",
		"listen_addr", cfg.ListenAddr,
		"public_base_url", cfg.PublicBaseURL,
		"mode", cfg.Mode,
		"analytics_db_path", cfg.AnalyticsDBPath,
		"max_signaling_message_bytes", cfg.MaxSignalingMessageBytes,
		"max_signaling_messages_per_second", cfg.MaxSignalingMessagesPerSecond,
		"admin_enabled", cfg.Admin.Enabled(),
		"turn_rest_enabled", cfg.TURNREST.Enabled(),
	)
	if err := cfg.ICEConfigError(); err != nil {
		logger.Warn("ice server configuration is invalid; /readyz will fail", "err", err)
	}
	logStartupSecurityWarnings(logger, cfg)

	m := metrics.New()

	store, err := analytics.OpenBadger(cfg.AnalyticsDBPath, logger)
	if err != nil {
		logger.Error("failed to open analytics store", "err", err, "path", cfg.AnalyticsDBPath)
		os.Exit(1)
	}
	// Nobody survives a restart.
	if err := store.ResetOnline(); err != nil {
		logger.Warn("failed to reset online users", "err", err)
	}
	dispatcher := analytics.NewDispatcher(store, cfg.AnalyticsQueueSize, logger, m)
	dispatcher.Start()

	var turn *turnrest.Generator
	if cfg.TURNREST.Enabled() {
		turn, err = turnrest.NewGenerator(turnrest.Config{
			SharedSecret:   cfg.TURNREST.SharedSecret,
			TTLSeconds:     cfg.TURNREST.TTLSeconds,
			UsernamePrefix: cfg.TURNREST.UsernamePrefix,
		})
		if err != nil {
			logger.Error("failed to configure turn rest credentials", "err", err)
			os.Exit(2)
		}
	}

	hub := signaling.NewHub(logger, m)
	coord := signaling.NewCoordinator(signaling.CoordinatorConfig{
		Sessions:  session.NewStore(),
		Rooms:     room.NewRegistry(),
		Transport: hub,
		Recorder:  dispatcher,
		Metrics:   m,
		Logger:    logger,
	})
	sig := signaling.NewServer(signaling.Config{
		Coordinator:          coord,
		Hub:                  hub,
		Metrics:              m,
		Logger:               logger,
		AllowedOrigins:       cfg.AllowedOrigins,
		IdleTimeout:          cfg.SignalingWSIdleTimeout,
		PingInterval:         cfg.SignalingWSPingInterval,
		MaxMessageBytes:      cfg.MaxSignalingMessageBytes,
		MaxMessagesPerSecond: cfg.MaxSignalingMessagesPerSecond,
		SendQueueSize:        cfg.SignalingSendQueueSize,
	})

	commit, builtAt := resolveBuildInfo(buildCommit, buildTime)
	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: builtAt}, httpserver.Options{
		Metrics:  m,
		TURNREST: turn,
	})
	sig.RegisterRoutes(srv.Mux())

	if cfg.Admin.Enabled() {
		api, err := newAdminAPI(cfg, store, coord, m, logger)
		if err != nil {
			logger.Error("failed to configure admin api", "err", err)
			os.Exit(2)
		}
		h := srv.OriginPolicy()(api.Handler())
		srv.Mux().Handle("/admin/", h)
		srv.Mux().Handle("/api/admin/", h)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		closeAnalytics(logger, dispatcher, store)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		sig.Close()
		closeAnalytics(logger, dispatcher, store)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked signaling sockets are not tracked by Shutdown; close them first
	// so their disconnect analytics make it into the store.
	sig.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}
	closeAnalytics(logger, dispatcher, store)

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func newAdminAPI(cfg config.Config, reader analytics.Reader, rooms admin.RoomLister, m *metrics.Metrics, logger *slog.Logger) (*admin.API, error) {
	creds, err := auth.NewCredentials(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Admin.TokenSecret, cfg.Admin.SessionTTL, nil)
	if err != nil {
		return nil, err
	}
	return admin.New(admin.Config{
		Credentials:  creds,
		Tokens:       tokens,
		Analytics:    reader,
		Rooms:        rooms,
		CookieSecure: cfg.Admin.CookieSecure,
		Metrics:      m,
		Logger:       logger,
	}), nil
}

// closeAnalytics drains queued writes before closing Badger.
func closeAnalytics(logger *slog.Logger, d *analytics.Dispatcher, store *analytics.BadgerStore) {
	d.Close()
	if err := store.Close(); err != nil {
		logger.Error("analytics store close failed", "err", err)
	}
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the Go
	// build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}

	return commit, buildTime
}
