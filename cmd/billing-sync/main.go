package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/coaching-platform/internal/app/billingsync"
	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting billing-sync", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := billingsync.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize billing-sync", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("billing-sync stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("billing-sync stopped gracefully")
}
