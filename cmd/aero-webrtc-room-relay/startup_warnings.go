package main

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/config"
)

func logStartupSecurityWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if lo.Contains(cfg.AllowedOrigins, "*") {
		logger.Warn("startup security warning: ALLOWED_ORIGINS contains '*' (allows any origin)",
			"warning_code", "allowed_origins_wildcard",
			"allowed_origins", cfg.AllowedOrigins,
			"mode", cfg.Mode,
		)
	}

	if cfg.AnalyticsDBPath == "" {
		logger.Warn("startup warning: ANALYTICS_DB_PATH is empty; analytics are kept in memory and lost on restart",
			"warning_code", "analytics_in_memory",
			"mode", cfg.Mode,
		)
	}

	if !cfg.Admin.Enabled() {
		logger.Warn("startup warning: admin dashboard API disabled (set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH)",
			"warning_code", "admin_disabled",
			"mode", cfg.Mode,
		)
		return
	}

	if strings.TrimSpace(cfg.Admin.TokenSecret) == "" {
		logger.Warn("startup warning: ADMIN_TOKEN_SECRET is unset; admin sessions use a per-process secret and end on restart",
			"warning_code", "admin_token_secret_random",
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && cfg.Admin.PasswordHash == "" {
		logger.Warn("startup security warning: ADMIN_PASSWORD is plain text while --mode=prod (prefer ADMIN_PASSWORD_HASH)",
			"warning_code", "admin_password_plaintext_in_prod",
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && !cfg.Admin.CookieSecure {
		logger.Warn("startup security warning: ADMIN_COOKIE_SECURE=false while --mode=prod (session cookie sent over plain HTTP)",
			"warning_code", "admin_cookie_insecure_in_prod",
			"mode", cfg.Mode,
		)
	}
}
