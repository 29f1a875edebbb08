// Package api собирает HTTP API: публичная форма, регистрация, входящие обращения,
// вебхук платёжного провайдера и отчёт по выручке.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-документа.
	_ "github.com/magabrotheeeer/coaching-platform/docs"
	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/billing/revenue"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/archive"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/feed"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/list"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/read"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/remove"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/replies"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/status"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/contact/submit"
	"github.com/magabrotheeeer/coaching-platform/internal/http/handlers/health"
	"github.com/magabrotheeeer/coaching-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/coaching-platform/internal/metrics"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
	authservice "github.com/magabrotheeeer/coaching-platform/internal/services/auth"
	billingservice "github.com/magabrotheeeer/coaching-platform/internal/services/billing"
	contactservice "github.com/magabrotheeeer/coaching-platform/internal/services/contact"
)

// Deps зависимости маршрутов.
type Deps struct {
	Contact  *contactservice.Service
	Auth     *authservice.AuthService
	Ingestor *billingservice.Ingestor
	Revenue  *billingservice.RevenueService
	Tokens   middlewarectx.TokenParser
	Pingers  map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.PrometheusMiddleware,
	)

	limiter := middlewarectx.NewRateLimiter(cfg.ContactRateLimit, cfg.ContactRateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, 2*time.Second, deps.Pingers).ServeHTTP)
		r.Post("/register", register.New(logger, deps.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, deps.Auth).ServeHTTP)
		r.With(middlewarectx.RateLimitMiddleware(logger, limiter)).
			Post("/contact", submit.New(logger, deps.Contact).ServeHTTP)

		// Вебхук подписывается провайдером, JWT не нужен
		r.Post("/billing/webhook", webhook.New(logger, deps.Ingestor, cfg.StripeWebhookSecret, cfg.MaxWebhookBodyBytes).ServeHTTP)

		// Группа сотрудников
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Use(middlewarectx.RequireRole(logger, models.RoleStaff, models.RoleAdmin))

			r.Get("/contact/submissions", list.New(logger, deps.Contact).ServeHTTP)
			r.Get("/contact/submissions/{id}", read.New(logger, deps.Contact).ServeHTTP)
			r.Delete("/contact/submissions/{id}", remove.New(logger, deps.Contact).ServeHTTP)
			r.Patch("/contact/submissions/{id}/status", status.New(logger, deps.Contact).ServeHTTP)
			r.Patch("/contact/submissions/{id}/archive", archive.New(logger, deps.Contact).ServeHTTP)
			r.Get("/contact/submissions/{id}/replies", replies.NewList(logger, deps.Contact).ServeHTTP)
			r.Post("/contact/submissions/{id}/replies", replies.NewCreate(logger, deps.Contact).ServeHTTP)
			r.Get("/contact/feed", feed.New(logger, deps.Contact, nil).ServeHTTP)
		})

		// Группа администраторов
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
			r.Get("/admin/revenue", revenue.New(logger, deps.Revenue).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
