// Package metrics содержит счётчики Prometheus для HTTP API и бизнес-операций.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// Исходы операций.
const (
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeNoPool   = "no_trainer"
	OutcomeVerified = "verified"
	OutcomeLowScore = "low_score"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	contactSubmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact form submissions",
		},
	)

	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_status_transitions_total",
			Help: "Applied contact submission status transitions",
		},
		[]string{"from", "to"},
	)

	rejectedTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_rejected_transitions_total",
			Help: "Status transitions rejected because the submission was already replied to",
		},
	)

	billingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_total",
			Help: "Billing events processed by the reconciler",
		},
		[]string{"kind", "outcome"},
	)

	trainerAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainer_assignments_total",
			Help: "Trainer auto-assignment attempts",
		},
		[]string{"outcome"},
	)

	pendingAccountsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_accounts_deleted_total",
			Help: "Unpaid signups removed by the cleanup job",
		},
	)

	recaptchaVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recaptcha_verifications_total",
			Help: "reCAPTCHA verifications of new signups",
		},
		[]string{"outcome"},
	)
)

// PrometheusMiddleware считает запросы и их длительность по шаблону маршрута chi.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack нужен websocket-ленте входящих.
func (rw *responseWriter) Hijack() (conn net.Conn, buf *bufio.ReadWriter, err error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// RecordContactSubmission учитывает новое обращение.
func RecordContactSubmission() {
	contactSubmissionsTotal.Inc()
}

// RecordTransition учитывает применённый переход статуса.
func RecordTransition(from, to models.ContactStatus) {
	statusTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

// RecordRejectedTransition учитывает отклонённый переход из Replied.
func RecordRejectedTransition() {
	rejectedTransitionsTotal.Inc()
}

// RecordBillingEvent учитывает обработанное событие биллинга.
func RecordBillingEvent(kind, outcome string) {
	billingEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTrainerAssignment учитывает попытку назначения тренера.
func RecordTrainerAssignment(outcome string) {
	trainerAssignmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordPendingAccountsDeleted учитывает удалённые неоплаченные регистрации.
func RecordPendingAccountsDeleted(n int) {
	pendingAccountsDeletedTotal.Add(float64(n))
}

// RecordRecaptcha учитывает исход проверки reCAPTCHA.
func RecordRecaptcha(outcome string) {
	recaptchaVerificationsTotal.WithLabelValues(outcome).Inc()
}
