// Package replies реализует HTTP-обработчики чтения и создания ответов на обращение.
//
// Создание ответа переводит обращение в Replied и ставит в очередь письмо автору.
package replies

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/coaching-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Request тело запроса ответа.
type Request struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// Service описывает интерфейс бизнес-логики ответов.
type Service interface {
	ListReplies(ctx context.Context, id string) ([]*models.Reply, error)
	CreateReply(ctx context.Context, id, content, sentBy string) (*models.Reply, error)
}

// ListHandler возвращает ответы на обращение в порядке создания.
type ListHandler struct {
	log     *slog.Logger
	service Service
}

// NewList создает новый ListHandler.
func NewList(log *slog.Logger, service Service) *ListHandler {
	return &ListHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Ответы на обращение
// @Tags Contact
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /contact/submissions/{id}/replies [get]
func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.replies.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	res, err := h.service.ListReplies(r.Context(), id)
	if err != nil {
		log.Error("failed to list replies", slog.String("id", id), sl.Err(err))
		status, resp := response.FromError(err, "could not list replies")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}
	if res == nil {
		res = []*models.Reply{}
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"replies": res,
	}))
}

// CreateHandler сохраняет ответ сотрудника.
type CreateHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewCreate создает новый CreateHandler.
func NewCreate(log *slog.Logger, service Service) *CreateHandler {
	return &CreateHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Ответить на обращение
// @Description Сохраняет ответ, переводит обращение в Replied и отправляет письмо автору.
// @Tags Contact
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID обращения"
// @Param request body Request true "Текст ответа"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /contact/submissions/{id}/replies [post]
func (h *CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.replies.create"
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

	sentBy, _ := r.Context().Value(middlewarectx.Email).(string)
	if sentBy == "" {
		log.Error("staff email not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	reply, err := h.service.CreateReply(r.Context(), id, req.Content, sentBy)
	if err != nil {
		log.Error("failed to create reply", slog.String("id", id), sl.Err(err))
		status, resp := response.FromError(err, "could not create reply")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("reply created", slog.String("id", id), slog.String("reply_id", reply.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"reply": reply,
	}))
}
