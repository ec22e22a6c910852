// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membership",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membership",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "membership",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	referralCodeAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membership",
			Subsystem: "referral",
			Name:      "code_attempts_total",
			Help:      "Referral codes generated and offered to the store.",
		},
	)

	referralCodeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membership",
			Subsystem: "referral",
			Name:      "code_collisions_total",
			Help:      "Referral codes rejected by the unique constraint.",
		},
	)

	downlineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "membership",
			Subsystem: "referral",
			Name:      "downline_duration_seconds",
			Help:      "Duration of three-level downline resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"outcome"},
	)

	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membership",
			Subsystem: "subscriptions",
			Name:      "expired_total",
			Help:      "Agents whose subscribed flag was cleared by the sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		referralCodeAttempts,
		referralCodeCollisions,
		downlineDuration,
		subscriptionsExpired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncInFlight and DecInFlight bracket a request.
func IncInFlight() { httpInFlight.Inc() }
func DecInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(method, path, status string, d time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ReferralCodeAttempt counts a generated code offered to the store.
func ReferralCodeAttempt() { referralCodeAttempts.Inc() }

// ReferralCodeCollision counts a code rejected as a duplicate.
func ReferralCodeCollision() { referralCodeCollisions.Inc() }

// ObserveDownline records a downline resolution and its outcome label.
func ObserveDownline(outcome string, d time.Duration) {
	downlineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SubscriptionsExpired adds n cleared subscriptions.
func SubscriptionsExpired(n int64) {
	if n > 0 {
		subscriptionsExpired.Add(float64(n))
	}
}
