package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harlley/mekane-share/internal/config"
	"github.com/harlley/mekane-share/internal/database"
	"github.com/harlley/mekane-share/internal/httpserver"
	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/middleware"
	"github.com/harlley/mekane-share/internal/retention"
	"github.com/harlley/mekane-share/internal/storage"
)

func main() {
	logger.Init("server")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "initializing object store failed", err)
		os.Exit(1)
	}

	var audit *database.Client
	if cfg.DatabaseURL != "" {
		audit, err = database.NewClient(cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "connecting to audit database failed", err)
			os.Exit(1)
		}
		defer audit.Close()
	}

	svc := storage.NewService(store, cfg.PublicURL)
	srv := httpserver.NewServer(svc, audit)

	if cfg.CleanupEnabled {
		sweeper := retention.NewSweeper(store, audit)
		if err := sweeper.Start(ctx, cfg.CleanupSchedule); err != nil {
			logger.Error(ctx, "starting retention sweeper failed", err)
			os.Exit(1)
		}
		logger.Info(ctx, "retention sweeper scheduled", logger.Fields{"schedule": cfg.CleanupSchedule})
	}

	handler := httpserver.Recoverer(middleware.RequestID(middleware.RequestLogging(srv.Routes())))
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", logger.Fields{
			"port":    cfg.Port,
			"backend": cfg.StorageBackend,
		})
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info(ctx, "shutdown signal received", logger.Fields{"signal": sig.String()})
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server failed", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "graceful shutdown failed", err)
		os.Exit(1)
	}
	logger.Info(ctx, "server stopped", nil)
}

// newStore builds the object store named by the configuration.
func newStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.BackendGCS:
		return storage.NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return storage.NewLocalStore(cfg.LocalStorageDir)
	}
}
