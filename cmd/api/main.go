package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/cinebrowse/internal/auth"
	"github.com/crucial707/cinebrowse/internal/catalog"
	"github.com/crucial707/cinebrowse/internal/config"
	"github.com/crucial707/cinebrowse/internal/db"
	"github.com/crucial707/cinebrowse/internal/handlers"
	"github.com/crucial707/cinebrowse/internal/middleware"
	"github.com/crucial707/cinebrowse/internal/repo"
	"github.com/crucial707/cinebrowse/internal/scheduler"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.CatalogAPIKey == "" {
		slog.Warn("CATALOG_API_KEY is empty; catalog requests will be rejected upstream")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	database, err := db.Connect(connectCtx, cfg.DSN(), db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	app := newApp(database, cfg)

	stopJobs, err := scheduler.Start(ctx,
		scheduler.PruneActivity(cfg.ActivityPruneCron, app.activity, cfg.ActivityRetention, nil),
		scheduler.SweepLimiter("@every 10m", app.authLimiter),
	)
	if err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopJobs()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting api server", "addr", srv.Addr, "tls", cfg.TLSEnabled(), "env", cfg.Env)
		if cfg.TLSEnabled() {
			serveErr <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}

func setupLogging(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// app holds the router plus the pieces background jobs need.
type app struct {
	router      http.Handler
	activity    *repo.AuditRepo
	authLimiter *middleware.IPRateLimiter
}

func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	return newApp(database, cfg).router
}

func newApp(database *sql.DB, cfg config.Config) *app {
	sessions := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	sessions.Secure = cfg.CookieSecure

	users := repo.NewUserRepo(database)
	activity := repo.NewAuditRepo(database)

	authHandler := &handlers.AuthHandler{
		Users:    users,
		Audit:    activity,
		Hasher:   auth.NewHasher(),
		Sessions: sessions,
	}
	catalogHandler := &handlers.CatalogHandler{
		Catalog: catalog.New(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.CatalogTimeout),
	}
	authLimiter := middleware.AuthRateLimiter()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled(), middleware.APIContentSecurityPolicy))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	// ==========================
	// Probes
	// ==========================
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			slog.WarnContext(r.Context(), "readiness check failed",
				"request_id", chimw.GetReqID(r.Context()),
				"error", err)
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		handlers.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// ==========================
	// Auth
	// ==========================
	r.Route("/auth", func(r chi.Router) {
		r.With(authLimiter.Middleware).Post("/signup", authHandler.Signup)
		r.With(authLimiter.Middleware).Post("/login", authHandler.Login)
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireSession(sessions)).Get("/activity", authHandler.Activity)
	})

	// ==========================
	// Catalog
	// ==========================
	r.With(middleware.RequireSession(sessions)).Get("/catalog/{list}", catalogHandler.List)

	return &app{router: r, activity: activity, authLimiter: authLimiter}
}
