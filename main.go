package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finora/internal/app"
	"finora/internal/config"
	"finora/internal/database"
	"finora/internal/goals"
	"finora/internal/ledger"
	applog "finora/internal/log"
	"finora/internal/market"
	"finora/internal/registry"
	"finora/internal/router"
	"finora/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "finora: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("FINORA_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := applog.New(applog.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	applog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Backup.Dir, 0o700); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Failure(context.Background(), "close database", err)
		}
	}()
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	users, err := registry.New(db, cfg.Security.BcryptCost, logger)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	var backend ledger.Backend
	switch cfg.Ledger.Backend {
	case "sql":
		backend = ledger.NewGormBackend(db)
	default:
		backend = ledger.NewCSVBackend(cfg.Ledger.Path, logger)
	}
	store, err := ledger.Open(ctx, backend, users, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	sessions := session.NewManager(db, session.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.ExpireHours) * time.Hour,
	}, logger)

	var quotes market.Provider = market.Unavailable{}
	if cfg.Market.Endpoint != "" {
		quotes = market.NewHTTPProvider(cfg.Market.Endpoint, cfg.Market.Timeout, logger)
	}

	a := app.New(app.Deps{
		Users:    users,
		Sessions: sessions,
		Ledger:   store,
		Goals:    goals.New(db, logger),
		Market:   quotes,
		Logger:   logger,
	})

	r := router.SetupRouter(router.Deps{
		Config:   cfg,
		DB:       db,
		App:      a,
		Sessions: sessions,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "ledger_backend", cfg.Ledger.Backend, "entries", store.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
