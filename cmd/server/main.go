// Package main runs the bookkeeping HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/api"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/bills"
	"github.com/smallbooks/bookkeeper/internal/config"
	"github.com/smallbooks/bookkeeper/internal/importer"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/reconcile"
	"github.com/smallbooks/bookkeeper/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup structured JSON logging.
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Initialize the ledger store.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize store", "error", err, "db_path", cfg.DBPath)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	slog.Info("database initialized", "db_path", cfg.DBPath)

	// Initialize the audit trail.
	rec, err := audit.Open(cfg.AuditPath, logger)
	if err != nil {
		slog.Error("failed to initialize audit trail", "error", err, "audit_path", cfg.AuditPath)
		os.Exit(1)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Error("failed to close audit trail", "error", err)
		}
	}()

	// Wire the services.
	dir := accounts.NewDirectory(st, rec)
	poster := ledger.NewPoster(st, rec)
	manager := bills.NewManager(st, poster, rec)
	allocator := bills.NewAllocator(st, poster, rec)
	engine := reconcile.NewEngine(st, dir, rec)
	imports := importer.NewService(st, nil, rec)

	r := api.NewRouter(api.Deps{
		Store:     st,
		Audit:     rec,
		Accounts:  dir,
		Poster:    poster,
		Bills:     manager,
		Allocator: allocator,
		Reconcile: engine,
		Importer:  imports,
	})

	// Start server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("starting bookkeeping server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
