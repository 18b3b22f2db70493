// Package httptransport wires the HTTP surface: routes, middleware stack,
// health, and metrics. It delegates to domain services without embedding
// business logic.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimchain/internal/claims/handler"
	"claimchain/internal/platform/health"
	"claimchain/internal/platform/metrics"
	"claimchain/internal/platform/middleware"
)

// NewRouter wires all public endpoints with the middleware stack. A nil
// metrics sink disables latency observation.
func NewRouter(h *handler.Handler, hc *health.Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(endpointLatency(m))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	h.Register(r)
	hc.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// endpointLatency observes per-route request latency. The chi route pattern
// is used as the label so path parameters do not explode cardinality.
func endpointLatency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			endpoint := chi.RouteContext(r.Context()).RoutePattern()
			if endpoint == "" {
				endpoint = r.URL.Path
			}
			m.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		})
	}
}
