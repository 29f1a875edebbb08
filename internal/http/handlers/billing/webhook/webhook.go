// Package webhook принимает вебхуки платёжного провайдера.
//
// Handler проверяет подпись Stripe-Signature, сохраняет подписку или разовый платёж
// как подзапись пользователя и публикует событие для воркера синхронизации.
// Неизвестные события подтверждаются ответом 200, чтобы провайдер не повторял доставку.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v75"
	stripewebhook "github.com/stripe/stripe-go/v75/webhook"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/services/billing"
)

// SignatureHeader заголовок с подписью вебхука.
const SignatureHeader = "Stripe-Signature"

// Service описывает интерфейс сохранения объектов провайдера.
type Service interface {
	IngestSubscription(ctx context.Context, sub *stripe.Subscription) error
	DeleteSubscription(ctx context.Context, sub *stripe.Subscription) error
	IngestPayment(ctx context.Context, pi *stripe.PaymentIntent) error
}

// Handler обрабатывает вебхуки Stripe.
type Handler struct {
	log          *slog.Logger
	service      Service
	secret       string
	maxBodyBytes int64
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, secret string, maxBodyBytes int64) *Handler {
	return &Handler{
		log:          log,
		service:      service,
		secret:       secret,
		maxBodyBytes: maxBodyBytes,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Подписки (created, updated, deleted) и разовые платежи (succeeded, payment_failed, processing).
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись вебхука"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Ошибка сохранения, провайдер повторит доставку"
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.secret == "" {
		log.Error("webhook secret is not configured")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("webhook secret is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, response.Error("error reading request body"))
		return
	}

	event, err := stripewebhook.ConstructEventWithOptions(
		payload,
		r.Header.Get(SignatureHeader),
		h.secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Warn("webhook signature verification failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("signature verification failed"))
		return
	}
	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", string(event.Type)))

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Error("failed to parse subscription", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to parse subscription"))
			return
		}
		if event.Type == "customer.subscription.deleted" {
			err = h.service.DeleteSubscription(r.Context(), &sub)
		} else {
			err = h.service.IngestSubscription(r.Context(), &sub)
		}

	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.processing":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Error("failed to parse payment intent", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to parse payment intent"))
			return
		}
		err = h.service.IngestPayment(r.Context(), &pi)

	default:
		log.Debug("webhook event ignored")
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"status": "ignored"}))
		return
	}

	switch {
	case errors.Is(err, billing.ErrNoUser):
		log.Warn("provider object is not linked to a user", sl.Err(err))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"status": "ignored"}))
	case err != nil:
		log.Error("failed to ingest webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
	default:
		log.Info("webhook event processed")
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"status": "received"}))
	}
}
