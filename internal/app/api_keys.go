package app

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader may carry the key instead of the "key" query parameter.
const APIKeyHeader = "X-API-Key"

// RequestAPIKey returns the caller's key, preferring the query parameter.
func RequestAPIKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get(APIKeyHeader)
}

// APIKeysRequired reports whether any keys are configured. With none, the
// station API is open.
func (app *Application) APIKeysRequired() bool {
	return len(app.Config.ApiKeys) > 0
}

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	if !app.APIKeysRequired() {
		return false
	}
	return app.IsInvalidAPIKey(RequestAPIKey(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.ApiKeys {
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}
