package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus metrics
// ═══════════════════════════════════════════════════════════════════════════

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "penalty",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method and status code.",
}, []string{"method", "status"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "penalty",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method"})

var rulesAdded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "penalty",
	Subsystem: "engine",
	Name:      "rules_added_total",
	Help:      "Total violation rules created.",
})

var recordsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "penalty",
	Subsystem: "engine",
	Name:      "records_added_total",
	Help:      "Total penalty records created, by violation type.",
}, []string{"violation_type"})

var monthlyResets = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "penalty",
	Subsystem: "engine",
	Name:      "resets_total",
	Help:      "Total penalty resets, by trigger (auto or manual).",
}, []string{"trigger"})

var persistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "penalty",
	Subsystem: "engine",
	Name:      "persistence_failures_total",
	Help:      "Total state saves that failed and were retained in memory only.",
})

// metricsMiddleware records request counts and latency.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
