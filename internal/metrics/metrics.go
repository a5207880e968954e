// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResetRequested = "requested"
	ResetCompleted = "completed"
	ResetRejected  = "rejected"

	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

var (
	registry = prometheus.NewRegistry()
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forum_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forum_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	passwordResetEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_password_reset_events_total",
			Help: "Password reset ledger events by outcome.",
		},
		[]string{"event"},
	)

	otpDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_otp_deliveries_total",
			Help: "OTP email deliveries by purpose and result.",
		},
		[]string{"purpose", "result"},
	)
)

// Init registers every collector. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			passwordResetEvents,
			otpDeliveries,
		)
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func RequestStarted() {
	httpInFlight.Inc()
}

func RequestFinished(method string, route string, status string, seconds float64) {
	httpInFlight.Dec()
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func PasswordReset(event string) {
	passwordResetEvents.WithLabelValues(event).Inc()
}

func OTPDelivery(purpose string, result string) {
	otpDeliveries.WithLabelValues(purpose, result).Inc()
}
