package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetRoutes registers every endpoint on mux. Operational endpoints bypass
// the API key check and the rate limiter.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Application != nil && api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	realtime := api.realtimeCacheSeconds()

	api.route(mux, "GET /api/current-time", 0, api.currentTimeHandler)
	api.route(mux, "GET /api/config", 0, api.configHandler)
	api.route(mux, "GET /api/status", 0, api.statusHandler)

	api.route(mux, "GET /api/stations", staticCacheSeconds, api.stationsHandler)
	api.route(mux, "GET /api/stations/nearby", staticCacheSeconds, api.nearbyStationsHandler)
	api.route(mux, "GET /api/stations/{id}", realtime, api.stationHandler)
	api.route(mux, "GET /api/stations/{id}/arrivals", realtime, api.arrivalsHandler)
	api.route(mux, "GET /api/stations/{id}/destinations", staticCacheSeconds, api.destinationsHandler)
	api.route(mux, "GET /api/routes/{id}/routings", staticCacheSeconds, api.routingsHandler)
}

// route wraps h with the API key check, the per-key rate limit and the
// Cache-Control tier, outermost last.
func (api *RestAPI) route(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	var handler http.Handler = api.requireAPIKey(h)
	handler = api.rateLimiter.Handler()(handler)
	mux.Handle(pattern, CacheControlMiddleware(cacheSeconds, handler))
}

func (api *RestAPI) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
