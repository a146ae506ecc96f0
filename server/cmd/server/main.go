package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/vahanboard/vahanboard/server/internal/alerts"
	"github.com/vahanboard/vahanboard/server/internal/api"
	"github.com/vahanboard/vahanboard/server/internal/auth"
	"github.com/vahanboard/vahanboard/server/internal/config"
	"github.com/vahanboard/vahanboard/server/internal/refresh"
	"github.com/vahanboard/vahanboard/server/internal/store"
	"github.com/vahanboard/vahanboard/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard UI static files from this directory; overrides server.ui_dir")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("vahanboard-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())
	if *uiDir != "" {
		cfg.Server.UIDir = *uiDir
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"snapshot_ttl", cfg.Server.Snapshot.TTL,
		"refresh_interval", cfg.Refresh.Interval,
		"sources", len(cfg.Sources),
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Dataset store with background TTL eviction.
	st := store.New(cfg.Server.Snapshot.TTL)
	go st.Run(ctx)

	// Alerts engine: evaluates rules on every refreshed dataset.
	alertEngine := alerts.New(cfg.Alerts)

	apiHandler := api.New(st, api.Options{
		Alerts:  alertEngine,
		Sources: cfg.Sources,
		Theme:   cfg.Theme,
		TopN:    cfg.Server.TopN,
	})

	// WebSocket hub: pushes the overview to UI clients.
	hub := ws.New(apiHandler, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	targets, err := refresh.Targets(cfg.Sources)
	if err != nil {
		slog.Error("failed to build sources", "err", err)
		os.Exit(1)
	}
	runner := refresh.New(targets, st, alertEngine, cfg.Refresh.Interval)
	runner.OnUpdate = hub.Broadcast
	go func() {
		if err := runner.Run(ctx); err != nil {
			slog.Error("refresh scheduler stopped", "err", err)
			cancel()
		}
	}()

	// Hot reload: alert rules and log level follow the config file.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			level.Set(next.SlogLevel())
			alertEngine.SetConfig(next.Alerts)
			slog.Info("config reloaded", "alert_rules", len(next.Alerts.Rules))
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	router := mux.NewRouter()
	router.PathPrefix("/api/").Handler(auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)(apiHandler))
	router.Handle("/ws/stream", hub)

	// Optional: serve a pre-built UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if dir := cfg.Server.UIDir; dir != "" {
		router.PathPrefix("/").Handler(spaHandler(dir))
		slog.Info("serving UI static files", "dir", dir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("vahanboard-server shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// spaHandler serves files from dir, falling back to index.html when the
// requested file does not exist.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
