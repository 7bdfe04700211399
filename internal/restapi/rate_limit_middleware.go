package restapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"weekendest.com/stations/internal/app"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/models"
)

const (
	anonymousRateLimitKey = "__no_key__"
	limiterIdleTimeout    = 10 * time.Minute
	limiterCleanupEvery   = 5 * time.Minute
)

// rateLimitClient is one caller's limiter and when it was last used.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // UnixNano
}

// RateLimitMiddleware limits requests per API key. Callers without a key
// share one bucket.
type RateLimitMiddleware struct {
	limiters    map[string]*rateLimitClient
	mu          sync.RWMutex
	rateLimit   rate.Limit
	burstSize   int
	cleanupTick *time.Ticker
	exemptKeys  map[string]bool
	stopChan    chan struct{}
	stopOnce    sync.Once
	clock       clock.Clock
}

// NewRateLimitMiddleware allows requestsPerInterval requests per interval
// for each key, with the same number as burst. Zero blocks every non-exempt
// request; a negative value disables limiting.
func NewRateLimitMiddleware(requestsPerInterval int, interval time.Duration, exemptKeys []string, clock clock.Clock) *RateLimitMiddleware {
	var limit rate.Limit
	switch {
	case requestsPerInterval < 0:
		limit = rate.Inf
	case requestsPerInterval == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(requestsPerInterval))
	}

	exempt := make(map[string]bool)
	for _, key := range exemptKeys {
		if key = strings.TrimSpace(key); key != "" {
			exempt[key] = true
		}
	}

	rl := &RateLimitMiddleware{
		limiters:    make(map[string]*rateLimitClient),
		rateLimit:   limit,
		burstSize:   requestsPerInterval,
		cleanupTick: time.NewTicker(limiterCleanupEvery),
		exemptKeys:  exempt,
		stopChan:    make(chan struct{}),
		clock:       clock,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return rl.rateLimitHandler
}

// getLimiter returns the key's limiter, creating it on first use, and marks
// the key as seen.
func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	if client, exists := rl.limiters[apiKey]; exists {
		client.lastSeen.Store(now)
		rl.mu.RUnlock()
		return client.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if client, exists := rl.limiters[apiKey]; exists {
		client.lastSeen.Store(now)
		return client.limiter
	}

	client := &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	client.lastSeen.Store(now)
	rl.limiters[apiKey] = client
	return client.limiter
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := app.RequestAPIKey(r)
		if apiKey == "" {
			apiKey = anonymousRateLimitKey
		}

		if rl.exemptKeys[apiKey] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(apiKey).Allow() {
			rl.sendRateLimitExceeded(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter is how long until the next token, rounded up to whole seconds.
func (rl *RateLimitMiddleware) retryAfter() int {
	switch rl.rateLimit {
	case 0:
		return int(time.Hour.Seconds())
	case rate.Inf:
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(rl.rateLimit))))
}

// sendRateLimitExceeded answers 429 with the standard error envelope.
func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	errorResponse := models.NewErrorResponse(http.StatusTooManyRequests,
		"Rate limit exceeded. Please try again later.", rl.clock)
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce evicts limiters idle for longer than limiterIdleTimeout.
func (rl *RateLimitMiddleware) cleanupOnce() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, client := range rl.limiters {
		if rl.exemptKeys[key] {
			continue
		}
		lastSeen := client.lastSeen.Load()
		if lastSeen == 0 {
			continue
		}
		if now.Sub(time.Unix(0, lastSeen)) > limiterIdleTimeout {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop ends the cleanup goroutine. In-flight requests are unaffected. Safe
// to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.cleanupTick.Stop()
	})
}
