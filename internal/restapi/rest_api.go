package restapi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"

	"weekendest.com/stations/internal/app"
	"weekendest.com/stations/internal/clock"
)

const (
	destinationCacheSize = 4096
	destinationCacheTTL  = time.Hour

	// staticCacheSeconds is the max-age of responses derived only from the
	// topology snapshot.
	staticCacheSeconds = 300
	// defaultRealtimeCacheSeconds applies when the config leaves CacheSeconds unset.
	defaultRealtimeCacheSeconds = 15
)

// RestAPI serves the station endpoints.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware

	// destinations caches DestinationNames per topology version, station
	// and direction.
	destinations gcache.Cache

	nearbyIndex   atomic.Pointer[stationIndex]
	nearbyIndexMu sync.Mutex
}

// NewRestAPI creates a new RestAPI instance with an initialized rate limiter.
func NewRestAPI(app *app.Application) *RestAPI {
	c := app.Clock
	if c == nil {
		c = clock.RealClock{}
		app.Clock = c
	}

	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.ExemptApiKeys, c),
		destinations: gcache.New(destinationCacheSize).
			LRU().
			Expiration(destinationCacheTTL).
			Build(),
	}
}

func (api *RestAPI) realtimeCacheSeconds() int {
	if api.Config.CacheSeconds > 0 {
		return api.Config.CacheSeconds
	}
	return defaultRealtimeCacheSeconds
}

// Shutdown stops the rate limiter's background cleanup.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
