package utils

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDFromParams(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/stations/L03", "L03"},
		{"/api/stations/L03.json", "L03"},
		{"/api/stations/a%20b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.SetPathValue("id", req.URL.Path[len("/api/stations/"):])
			assert.Equal(t, tt.expected, ExtractIDFromParams(req))
		})
	}
}

func TestParseFloatParam(t *testing.T) {
	params := url.Values{"lat": {"40.73"}, "lon": {"west"}, "blank": {"  "}}

	lat, fieldErrors := ParseFloatParam(params, "lat", nil)
	assert.InDelta(t, 40.73, lat, 1e-9)
	assert.Nil(t, fieldErrors)

	blank, fieldErrors := ParseFloatParam(params, "blank", fieldErrors)
	assert.Zero(t, blank)
	assert.Nil(t, fieldErrors)

	_, fieldErrors = ParseFloatParam(params, "lon", fieldErrors)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, []string{`Invalid field value for field "lon".`}, fieldErrors["lon"])
}

func TestParseIntParam(t *testing.T) {
	params := url.Values{"limit": {"5"}, "radius": {"1.5"}}

	limit, fieldErrors := ParseIntParam(params, "limit", nil)
	assert.Equal(t, 5, limit)
	assert.Nil(t, fieldErrors)

	missing, fieldErrors := ParseIntParam(params, "missing", fieldErrors)
	assert.Zero(t, missing)
	assert.Nil(t, fieldErrors)

	existing := map[string][]string{"lat": {"bad"}}
	_, fieldErrors = ParseIntParam(params, "radius", existing)
	assert.Len(t, fieldErrors, 2)
	assert.Contains(t, fieldErrors, "radius")
}
