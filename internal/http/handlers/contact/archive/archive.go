// Package archive реализует HTTP-обработчик архивации обращения.
package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Request тело запроса архивации.
type Request struct {
	Archived *bool `json:"archived"`
}

// Handler переключает признак Archived, статус обращения не меняется.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики архивации.
type Service interface {
	SetArchived(ctx context.Context, id string, archived bool) (*models.ContactSubmission, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Архивировать обращение
// @Tags Contact
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Param request body Request true "archived: true или false"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /contact/submissions/{id}/archive [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.archive"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Archived == nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("field archived is required"))
		return
	}

	sub, err := h.service.SetArchived(r.Context(), id, *req.Archived)
	if err != nil {
		log.Error("failed to archive submission", slog.String("id", id), sl.Err(err))
		status, resp := response.FromError(err, "could not archive submission")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("archive flag updated", slog.String("id", id), slog.Bool("archived", sub.Archived))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submission": sub,
	}))
}
