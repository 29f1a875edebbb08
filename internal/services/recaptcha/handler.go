package recaptcha

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/metrics"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Verifier проверяет токен во внешнем сервисе.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Result, error)
}

// Repository хранилище профилей.
type Repository interface {
	TakeRecaptchaToken(ctx context.Context, userUID string, now time.Time) (string, bool, error)
	SaveRecaptchaResult(ctx context.Context, userUID string, score float64, verified bool, now time.Time) error
	AddAccountFlag(ctx context.Context, userUID, flag string, now time.Time) error
}

// SignupHandler обрабатывает user.created: проверяет токен один раз и сохраняет оценку.
type SignupHandler struct {
	repo     Repository
	verifier Verifier
	minScore float64
	log      *slog.Logger
	now      func() time.Time
}

// NewSignupHandler создаёт SignupHandler.
func NewSignupHandler(repo Repository, verifier Verifier, minScore float64, log *slog.Logger) *SignupHandler {
	return &SignupHandler{
		repo:     repo,
		verifier: verifier,
		minScore: minScore,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage разбирает событие регистрации. Ошибки логируются и не возвращаются.
func (h *SignupHandler) HandleMessage(ctx context.Context, msg rabbitmq.Message) error {
	var event models.SignupEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.UserUID == "" {
		h.log.Error("invalid signup event", slog.String("routing_key", msg.RoutingKey), sl.Err(err))
		return nil
	}
	h.Verify(ctx, event.UserUID)
	return nil
}

// Verify забирает токен пользователя и сохраняет результат проверки.
// Если токена уже нет, пользователь был проверен раньше и вызов ничего не делает.
func (h *SignupHandler) Verify(ctx context.Context, userUID string) {
	log := h.log.With(slog.String("user_uid", userUID))

	token, ok, err := h.repo.TakeRecaptchaToken(ctx, userUID, h.now())
	if err != nil {
		log.Error("failed to take recaptcha token", sl.Err(err))
		metrics.RecordRecaptcha(metrics.OutcomeFailed)
		return
	}
	if !ok {
		log.Debug("no recaptcha token, skipping")
		metrics.RecordRecaptcha(metrics.OutcomeSkipped)
		return
	}

	result, err := h.verifier.Verify(ctx, token)
	if err != nil {
		log.Error("recaptcha verification failed", sl.Err(err))
		metrics.RecordRecaptcha(metrics.OutcomeFailed)
		if err := h.repo.SaveRecaptchaResult(ctx, userUID, 0, false, h.now()); err != nil {
			log.Error("failed to save recaptcha result", sl.Err(err))
		}
		return
	}

	if err := h.repo.SaveRecaptchaResult(ctx, userUID, result.Score, result.Success, h.now()); err != nil {
		log.Error("failed to save recaptcha result", sl.Err(err))
		metrics.RecordRecaptcha(metrics.OutcomeFailed)
		return
	}

	if result.Score < h.minScore {
		if err := h.repo.AddAccountFlag(ctx, userUID, models.FlagLowRecaptchaScore, h.now()); err != nil {
			log.Error("failed to flag account", sl.Err(err))
		}
		log.Warn("low recaptcha score", slog.Float64("score", result.Score), slog.String("action", result.Action))
		metrics.RecordRecaptcha(metrics.OutcomeLowScore)
		return
	}
	log.Info("recaptcha verified", slog.Float64("score", result.Score))
	metrics.RecordRecaptcha(metrics.OutcomeVerified)
}
