// Package feed реализует живую ленту обращений через websocket.
//
// После подключения клиент получает текущий список по фильтру, а затем
// полный пересчитанный список после каждого изменения любого обращения.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/list"
	"github.com/magabrotheeeer/coaching-platform/internal/http/response"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Snapshot сообщение ленты.
type Snapshot struct {
	Submissions []*models.ContactSubmission `json:"submissions"`
	SentAt      time.Time                   `json:"sent_at"`
}

// Service описывает интерфейс подписки на изменения обращений.
type Service interface {
	Subscribe(ctx context.Context, filter models.ContactFilter, fn func([]*models.ContactSubmission) error) error
}

// Handler обслуживает websocket-подключения ленты.
type Handler struct {
	log      *slog.Logger
	service  Service
	upgrader websocket.Upgrader
}

// New создает новый Handler. checkOrigin nil означает проверку по умолчанию (тот же Host).
func New(log *slog.Logger, service Service, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		log:     log,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP godoc
// @Summary Живая лента обращений (websocket)
// @Description Отправляет список обращений при подключении и после каждого изменения.
// @Tags Contact
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу" Enums(Unread, Read, Replied)
// @Param service query string false "Фильтр по услуге"
// @Success 101 {object} Snapshot
// @Failure 400 {object} response.ErrorResponse
// @Router /contact/feed [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.feed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter := list.FilterFromQuery(r)
	if filter.Status != "" && !filter.Status.Valid() {
		status, resp := response.FromError(models.ErrInvalidStatus, "")
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readPump(conn, cancel)
	go h.pingPump(ctx, conn, log)

	log.Info("feed client connected")
	err = h.service.Subscribe(ctx, filter, func(subs []*models.ContactSubmission) error {
		if subs == nil {
			subs = []*models.ContactSubmission{}
		}
		return writeJSON(conn, Snapshot{Submissions: subs, SentAt: time.Now().UTC()})
	})
	if err != nil {
		log.Warn("feed closed with error", sl.Err(err))
		_ = writeClose(conn, websocket.CloseInternalServerErr, "feed error")
		return
	}
	_ = writeClose(conn, websocket.CloseNormalClosure, "")
	log.Info("feed client disconnected")
}

// readPump читает управляющие кадры и отменяет подписку, когда клиент отключается.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) pingPump(ctx context.Context, conn *websocket.Conn, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("ping failed", sl.Err(err))
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func writeClose(conn *websocket.Conn, code int, text string) error {
	return conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
