package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"weekendest.com/stations/internal/logging"
)

// NewRequestLoggingMiddleware logs one line per request and hands handlers a
// logger already tagged with the request id. The line carries the matched
// route and, for station and line routes, the requested id, so a station's
// traffic can be followed without parsing paths.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := GetRequestID(r.Context())

			r = r.WithContext(logging.WithLogger(r.Context(), logger.With(slog.String("request_id", reqID))))
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			attrs := []slog.Attr{
				slog.String("request_id", reqID),
				slog.String("route", routeLabel(r)),
				slog.String("component", "http_server"),
			}
			if id := r.PathValue("id"); id != "" {
				attrs = append(attrs, slog.String("resource_id", normalizeID(id)))
			}
			if line := r.URL.Query().Get("route"); line != "" {
				attrs = append(attrs, slog.String("line", normalizeID(line)))
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				attrs = append(attrs, slog.String("user_agent", ua))
			}

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				wrapped.statusCode,
				float64(time.Since(start).Nanoseconds())/1e6,
				attrs...)
		})
	}
}
