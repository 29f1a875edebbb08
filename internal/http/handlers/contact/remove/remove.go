// Package remove реализует HTTP-обработчик удаления обращения вместе с ответами.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
)

// Handler удаляет обращение. Если ответы удалить не удалось, обращение остаётся и возвращается 503.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления.
type Service interface {
	Delete(ctx context.Context, id string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить обращение
// @Tags Contact
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse "Удаление не завершено, повторите"
// @Router /contact/submissions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Error("failed to delete submission", slog.String("id", id), sl.Err(err))
		status, resp := response.FromError(err, "could not delete submission")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("submission deleted", slog.String("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted_id": id,
	}))
}
