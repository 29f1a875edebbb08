// Package scheduler собирает процесс ежедневной очистки неоплаченных регистраций.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/coaching-platform/internal/services/scheduler"
	"github.com/magabrotheeeer/coaching-platform/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	cleanup *schedulerservice.CleanupService
	db      *repository.Storage
	logger  *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	runAt, err := cfg.CleanupClock()
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup time: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		cleanup: schedulerservice.NewCleanupService(db, logger, runAt, cfg.PendingTTL),
		db:      db,
		logger:  logger,
	}, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.cleanup.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
