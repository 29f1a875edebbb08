// Package scheduler раз в сутки удаляет неоплаченные регистрации старше заданного срока.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/metrics"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// PendingUserRepository хранилище профилей и учётных записей.
type PendingUserRepository interface {
	FindStalePendingUsers(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteUsers(ctx context.Context, userUIDs []string) ([]string, error)
	DeleteIdentity(ctx context.Context, userUID string) error
}

// CleanupService удаляет профили в статусе pending без единого платежа.
type CleanupService struct {
	repo  PendingUserRepository
	log   *slog.Logger
	ttl   time.Duration
	runAt time.Duration
	now   func() time.Time
}

// NewCleanupService создает новый экземпляр CleanupService.
// runAt смещение от полуночи UTC, ttl возраст, после которого регистрация считается брошенной.
func NewCleanupService(repo PendingUserRepository, log *slog.Logger, runAt, ttl time.Duration) *CleanupService {
	return &CleanupService{
		repo:  repo,
		log:   log,
		ttl:   ttl,
		runAt: runAt,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NextRun возвращает ближайший момент запуска строго после now.
func NextRun(now time.Time, runAt time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(runAt)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run выполняет очистку каждый день в заданное время, пока ctx не отменён.
func (s *CleanupService) Run(ctx context.Context) {
	for {
		next := NextRun(s.now(), s.runAt)
		s.log.Info("next cleanup scheduled", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("cleanup scheduler stopped")
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("cleanup run failed", sl.Err(err))
		}
	}
}

// RunOnce удаляет регистрации, созданные раньше now-ttl, и возвращает число удалённых профилей.
// Учётные записи удаляются после профилей; ошибка по одной учётной записи не прерывает остальные.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	s.log.Info("starting cleanup of stale pending accounts", slog.Time("cutoff", cutoff))

	uids, err := s.repo.FindStalePendingUsers(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(uids) == 0 {
		s.log.Info("no stale pending accounts found")
		return 0, nil
	}
	s.log.Info("found stale pending accounts", "count", len(uids))

	deleted, err := s.repo.DeleteUsers(ctx, uids)
	if err != nil {
		return 0, err
	}
	if skipped := len(uids) - len(deleted); skipped > 0 {
		s.log.Info("accounts left pending state before deletion, kept", "count", skipped)
	}

	// Учётные записи удаляются только для реально удалённых профилей.
	for _, uid := range deleted {
		err := s.repo.DeleteIdentity(ctx, uid)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrIdentityNotFound):
			s.log.Warn("identity already removed", slog.String("user_uid", uid))
		default:
			s.log.Error("failed to delete identity", slog.String("user_uid", uid), sl.Err(err))
		}
	}

	metrics.RecordPendingAccountsDeleted(len(deleted))
	s.log.Info("cleanup finished", "deleted", len(deleted))
	return len(deleted), nil
}
