package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
	"github.com/pharmquiz/pharmquiz-server/internal/override"
	"github.com/pharmquiz/pharmquiz-server/internal/platform/cache"
	"github.com/pharmquiz/pharmquiz-server/internal/platform/config"
	"github.com/pharmquiz/pharmquiz-server/internal/platform/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loader := dataset.NewLoader(cfg.Seed.Dir)
	if _, err := loader.DatasetWithTimeout(ctx, cfg.Seed.LoadTimeout); err != nil {
		// The server still starts: an active override can supersede a
		// broken seed dataset, and /api/admin/lint shows what is wrong.
		slog.Warn("seed dataset failed to load", "error", err)
	}

	store, dbClose := newStore(ctx, cfg)
	defer dbClose()

	manager := override.NewManager(store)
	resolver := override.NewResolver(loader, manager)

	var exportCache *cache.Cache
	if cfg.Cache.Enabled {
		exportCache, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer exportCache.Close()
	}

	srvHandlers := &handlers{
		loader:    loader,
		manager:   manager,
		resolver:  resolver,
		cache:     exportCache,
		exportTTL: cfg.Cache.ExportTTL,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      srvHandlers.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newStore connects to PostgreSQL for override persistence, falling back
// to an in-memory store when the database is unreachable so local
// development works without one. Memory overrides do not survive restarts.
func newStore(ctx context.Context, cfg *config.Config) (override.Store, func()) {
	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Warn("database unavailable, using in-memory override store", "error", err)
		return override.NewMemoryStore(), func() {}
	}

	store, err := override.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create override store", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure override schema", "error", err)
		os.Exit(1)
	}
	return store, db.Close
}
