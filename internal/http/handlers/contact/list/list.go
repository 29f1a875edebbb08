// Package list реализует HTTP-обработчик списка обращений для сотрудников.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Handler возвращает обращения по фильтру status и service, новые первыми.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выборки обращений.
type Service interface {
	List(ctx context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// FilterFromQuery читает фильтр из параметров status и service.
func FilterFromQuery(r *http.Request) models.ContactFilter {
	q := r.URL.Query()
	return models.ContactFilter{
		Status:  models.ContactStatus(q.Get("status")),
		Service: q.Get("service"),
	}
}

// ServeHTTP godoc
// @Summary Список обращений
// @Description Возвращает обращения, отсортированные по дате отправки по убыванию.
// @Tags Contact
// @Produce  json
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу" Enums(Unread, Read, Replied)
// @Param service query string false "Фильтр по услуге"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неизвестный статус"
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /contact/submissions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter := FilterFromQuery(r)
	res, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list submissions", sl.Err(err))
		status, resp := response.FromError(err, "could not list submissions")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}
	if res == nil {
		res = []*models.ContactSubmission{}
	}

	log.Info("submissions listed", slog.Int("count", len(res)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submissions": res,
	}))
}
