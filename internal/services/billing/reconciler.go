// Package billing синхронизирует статус оплаты пользователей с записями платёжного провайдера,
// автоматически назначает тренера и считает ежемесячную регулярную выручку.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/metrics"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Статусы провайдера, означающие успешную оплату.
const (
	providerStatusActive    = "active"
	providerStatusSucceeded = "succeeded"
)

// UserRepository хранилище профилей и пула тренеров.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetSubscriptionRecord(ctx context.Context, id string) (*models.SubscriptionRecord, error)
	UpdateSubscriptionState(ctx context.Context, userUID string, status models.PaymentStatus, subscriptionID, providerStatus string, now time.Time) error
	MarkSubscriptionCancelled(ctx context.Context, userUID string, now time.Time) error
	RecordSuccessfulPayment(ctx context.Context, userUID, paymentID string, amount float64, paidAt, now time.Time) error
	PickLeastLoadedTrainer(ctx context.Context) (*models.Trainer, error)
	AssignTrainerIfUnset(ctx context.Context, userUID string, trainer *models.Trainer, now time.Time) (bool, error)
}

// Reconciler обрабатывает события записи и удаления платёжных подзаписей.
// Обработчики идемпотентны: повторная доставка события даёт тот же результат.
type Reconciler struct {
	repo UserRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewReconciler создаёт Reconciler.
func NewReconciler(repo UserRepository, log *slog.Logger) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// PaymentStatusFor выводит статус оплаты из статуса подписки провайдера.
func PaymentStatusFor(providerStatus string) models.PaymentStatus {
	if providerStatus == providerStatusActive {
		return models.PaymentActive
	}
	return models.PaymentPending
}

// HandleMessage разбирает событие из очереди и применяет его.
// Ошибки логируются и не возвращаются, чтобы брокер не доставлял событие повторно.
func (r *Reconciler) HandleMessage(ctx context.Context, msg rabbitmq.Message) error {
	var event models.BillingEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		r.log.Error("failed to unmarshal billing event", slog.String("routing_key", msg.RoutingKey), sl.Err(err))
		metrics.RecordBillingEvent(msg.RoutingKey, metrics.OutcomeFailed)
		return nil
	}
	if event.Kind == "" {
		event.Kind = msg.RoutingKey
	}

	log := r.log.With(
		slog.String("kind", event.Kind),
		slog.String("user_uid", event.UserUID),
		slog.String("record_id", event.RecordID),
	)
	if err := r.Apply(ctx, event); err != nil {
		log.Error("failed to reconcile billing event", sl.Err(err))
		metrics.RecordBillingEvent(event.Kind, metrics.OutcomeFailed)
		return nil
	}
	return nil
}

// Apply применяет одно событие к профилю пользователя.
func (r *Reconciler) Apply(ctx context.Context, event models.BillingEvent) error {
	if event.UserUID == "" {
		return errors.New("event has no user")
	}
	log := r.log.With(
		slog.String("kind", event.Kind),
		slog.String("user_uid", event.UserUID),
		slog.String("record_id", event.RecordID),
	)
	now := r.now()

	switch event.Kind {
	case models.EventSubscriptionWritten:
		// Статус берётся из текущей подзаписи: событие могло прийти повторно после удаления или обновления.
		rec, err := r.repo.GetSubscriptionRecord(ctx, event.RecordID)
		if errors.Is(err, models.ErrNotFound) {
			log.Info("subscription record no longer exists, event skipped")
			metrics.RecordBillingEvent(event.Kind, metrics.OutcomeSkipped)
			return nil
		}
		if err != nil {
			return err
		}
		status := PaymentStatusFor(rec.Status)
		if err := r.repo.UpdateSubscriptionState(ctx, event.UserUID, status, rec.ID, rec.Status, now); err != nil {
			return err
		}
		log.Info("payment status updated",
			slog.String("payment_status", string(status)),
			slog.String("provider_status", rec.Status))
		metrics.RecordBillingEvent(event.Kind, metrics.OutcomeApplied)
		if status == models.PaymentActive {
			r.assignTrainer(ctx, log, event.UserUID)
		}

	case models.EventSubscriptionDeleted:
		if err := r.repo.MarkSubscriptionCancelled(ctx, event.UserUID, now); err != nil {
			return err
		}
		log.Info("subscription cancelled")
		metrics.RecordBillingEvent(event.Kind, metrics.OutcomeApplied)

	case models.EventPaymentWritten:
		if event.Status != providerStatusSucceeded {
			log.Info("payment not succeeded, status unchanged", slog.String("provider_status", event.Status))
			metrics.RecordBillingEvent(event.Kind, metrics.OutcomeSkipped)
			return nil
		}
		paidAt := event.OccurredAt
		if paidAt.IsZero() {
			paidAt = now
		}
		if err := r.repo.RecordSuccessfulPayment(ctx, event.UserUID, event.RecordID, event.Amount, paidAt, now); err != nil {
			return err
		}
		log.Info("one-time payment recorded", slog.Float64("amount", event.Amount))
		metrics.RecordBillingEvent(event.Kind, metrics.OutcomeApplied)
		r.assignTrainer(ctx, log, event.UserUID)

	default:
		log.Warn("unknown billing event kind")
		metrics.RecordBillingEvent(event.Kind, metrics.OutcomeSkipped)
	}
	return nil
}

// assignTrainer назначает наименее загруженного тренера, если тренер ещё не назначен.
// Любой исход, кроме успешного назначения, только логируется.
func (r *Reconciler) assignTrainer(ctx context.Context, log *slog.Logger, userUID string) {
	user, err := r.repo.GetUser(ctx, userUID)
	if err != nil {
		log.Error("failed to load user for trainer assignment", sl.Err(err))
		metrics.RecordTrainerAssignment(metrics.OutcomeFailed)
		return
	}
	if user.AssignedTrainerID != nil {
		metrics.RecordTrainerAssignment(metrics.OutcomeSkipped)
		return
	}

	trainer, err := r.repo.PickLeastLoadedTrainer(ctx)
	if errors.Is(err, models.ErrNotFound) {
		log.Warn("no trainers available, user left unassigned")
		metrics.RecordTrainerAssignment(metrics.OutcomeNoPool)
		return
	}
	if err != nil {
		log.Error("failed to pick trainer", sl.Err(err))
		metrics.RecordTrainerAssignment(metrics.OutcomeFailed)
		return
	}

	ok, err := r.repo.AssignTrainerIfUnset(ctx, userUID, trainer, r.now())
	if err != nil {
		log.Error("failed to assign trainer", slog.String("trainer_id", trainer.ID), sl.Err(err))
		metrics.RecordTrainerAssignment(metrics.OutcomeFailed)
		return
	}
	if !ok {
		log.Info("trainer already assigned concurrently")
		metrics.RecordTrainerAssignment(metrics.OutcomeSkipped)
		return
	}
	log.Info("trainer assigned", slog.String("trainer_id", trainer.ID), slog.String("trainer_name", trainer.Name))
	metrics.RecordTrainerAssignment(metrics.OutcomeApplied)
}
