package restapi

import (
	"net/http"
	"strconv"
	"time"

	"weekendest.com/stations/internal/metrics"
)

const (
	unmatchedRoute = "unmatched"
	metricsRoute   = "GET /metrics"
)

// MetricsHandler records request counts and latency per route pattern, and
// counts requests refused while station data is unavailable. Prometheus
// scrapes are not recorded. A nil m yields a pass-through middleware.
func MetricsHandler(m *metrics.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			// The mux fills r.Pattern, which keeps station ids out of the
			// label set.
			path := routeLabel(r)
			if path == metricsRoute {
				return
			}

			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			if wrapped.statusCode == http.StatusServiceUnavailable {
				m.HTTPUnavailableTotal.WithLabelValues(path).Inc()
			}
		})
	}
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	return r.Pattern
}
