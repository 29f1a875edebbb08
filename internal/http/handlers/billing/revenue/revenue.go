// Package revenue реализует HTTP-обработчик отчёта по ежемесячной регулярной выручке.
package revenue

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

// Handler возвращает MRR и разбивку по тарифам.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс расчёта MRR.
type Service interface {
	Report(ctx context.Context) (*models.RevenueReport, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отчёт MRR
// @Description Сумма месячных платежей по активным подпискам: годовые делятся на 12.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.RevenueReport}
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /admin/revenue [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.revenue"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.Report(r.Context())
	if err != nil {
		log.Error("failed to build revenue report", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build revenue report"))
		return
	}

	log.Info("revenue report built", slog.Float64("total_mrr", report.TotalMRR))
	render.JSON(w, r, response.StatusOKWithData(report))
}
