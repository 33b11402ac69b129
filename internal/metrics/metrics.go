// metrics — Prometheus-метрики auth-сервиса: HTTP-запросы, исходы
// операций аутентификации, доставка кодов и очистка неподтверждённых аккаунтов.
//
// Все методы безопасны для вызова на nil *Metrics (метрики выключены).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	authOutcomes   *prometheus.CounterVec
	codeDelivery   *prometheus.CounterVec
	pendingDeleted prometheus.Counter
	rateLimitHits  prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_http_requests_total",
				Help: "Total HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		authOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_operations_total",
				Help: "Auth operations by name and result code.",
			},
			[]string{"op", "result"},
		),
		codeDelivery: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_code_delivery_total",
				Help: "Verification code deliveries by status.",
			},
			[]string{"status"},
		),
		pendingDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_pending_accounts_deleted_total",
				Help: "Unverified accounts removed by the janitor.",
			},
		),
		rateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_login_rate_limited_total",
				Help: "Login attempts rejected by the rate limiter.",
			},
		),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.authOutcomes,
		m.codeDelivery,
		m.pendingDeleted,
		m.rateLimitHits,
	)

	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// AuthOutcome учитывает исход операции (result — "ok" или код ошибки).
func (m *Metrics) AuthOutcome(op, result string) {
	if m == nil {
		return
	}

	m.authOutcomes.WithLabelValues(op, result).Inc()
}

// CodeDelivery учитывает попытку доставки кода ("success"/"error").
func (m *Metrics) CodeDelivery(status string) {
	if m == nil {
		return
	}

	m.codeDelivery.WithLabelValues(status).Inc()
}

// PendingDeleted учитывает удалённые janitor'ом аккаунты.
func (m *Metrics) PendingDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}

	m.pendingDeleted.Add(float64(n))
}

// RateLimited учитывает отклонённую лимитером попытку входа.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}

	m.rateLimitHits.Inc()
}
