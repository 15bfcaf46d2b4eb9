package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labstock-backend/internal/config"
	"labstock-backend/internal/logging"
	"labstock-backend/internal/server"
	"labstock-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		ServiceName: "labstock-backend",
		Environment: cfg.Environment,
	})
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. The backend is closed on every return
// path.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("storage backend %s unavailable: %w", cfg.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("close storage backend", "error", err)
		}
	}()

	app := server.New(cfg, backend, logger)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				logger.Error("shutdown", "error", err)
			}
		case <-done:
		}
	}()

	logger.Info("server listening", "port", cfg.HTTPPort, "backend", cfg.Backend)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
