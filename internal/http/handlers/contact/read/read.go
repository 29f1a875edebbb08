// Package read реализует HTTP-обработчик получения обращения по ID.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Handler обрабатывает запросы на получение обращения по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения обращения.
type Service interface {
	Get(ctx context.Context, id string) (*models.ContactSubmission, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить обращение
// @Tags Contact
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Обращение не найдено"
// @Router /contact/submissions/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Error("failed to read submission", slog.String("id", id), sl.Err(err))
		status, resp := response.FromError(err, "could not read submission")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submission": res,
	}))
}
