// Package status реализует HTTP-обработчик смены статуса обращения.
//
// Переходы проверяются сервисом: из Replied нельзя вернуться в Unread или Read,
// такой запрос получает 409 с объяснением.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Request тело запроса смены статуса.
type Request struct {
	Status models.ContactStatus `json:"status" validate:"required"`
}

// Handler обрабатывает смену статуса обращения.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики смены статуса.
type Service interface {
	UpdateStatus(ctx context.Context, id string, next models.ContactStatus) (*models.ContactSubmission, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Сменить статус обращения
// @Tags Contact
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Param request body Request true "Новый статус: Unread, Read или Replied"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неизвестный статус"
// @Failure 404 {object} response.ErrorResponse "Обращение не найдено"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Router /contact/submissions/{id}/status [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if !req.Status.Valid() {
		status, resp := response.FromError(models.ErrInvalidStatus, "")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	sub, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		log.Warn("status update rejected", slog.String("id", id), slog.String("to", string(req.Status)), sl.Err(err))
		status, resp := response.FromError(err, "could not update status")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("status updated", slog.String("id", id), slog.String("status", string(sub.Status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submission": sub,
	}))
}
