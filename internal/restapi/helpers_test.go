package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekendest.com/stations/internal/app"
	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/gtfs"
	"weekendest.com/stations/internal/metrics"
	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
)

var testNow = time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)

func loadTestTopology(t testing.TB) *transit.Topology {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "topology.json"))
	require.NoError(t, err)
	topo, err := gtfs.ParseTopology(data)
	require.NoError(t, err)
	return topo
}

func createTestApi(t testing.TB) *RestAPI {
	return createTestApiWithClock(t, clock.NewMockClock(testNow))
}

func createTestApiWithClock(t testing.TB, c clock.Clock) *RestAPI {
	t.Helper()
	manager, err := gtfs.NewMockManager(loadTestTopology(t), c)
	require.NoError(t, err)

	application := &app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{"TEST"},
			RateLimit: 100,
		},
		GtfsConfig:  gtfs.Config{Shuffle: transit.DefaultShuffleConfig()},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GtfsManager: manager,
		Clock:       c,
		Metrics:     metrics.New(),
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

// serveApiAndRetrieveEndpoint routes one GET through the full mux and decodes
// the envelope.
func serveApiAndRetrieveEndpoint(t testing.TB, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, endpoint, nil))
	resp := rec.Result()

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func serveAndRetrieveEndpoint(t testing.TB, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

// entryOf digs data.entry out of a decoded envelope.
func entryOf(t testing.TB, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok, "entry is %T", data["entry"])
	return entry
}

func listOf(t testing.TB, model models.ResponseModel) ([]interface{}, bool) {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	list, ok := data["list"].([]interface{})
	require.True(t, ok, "list is %T", data["list"])
	limitExceeded, _ := data["limitExceeded"].(bool)
	return list, limitExceeded
}

// collectIDs extracts a string field from every object in list.
func collectIDs(t testing.TB, list []interface{}, key string) []string {
	t.Helper()
	ids := make([]string, 0, len(list))
	for i, item := range list {
		object, ok := item.(map[string]interface{})
		require.True(t, ok, "item %d is %T", i, item)
		id, ok := object[key].(string)
		require.True(t, ok, "item %d key %q is %T", i, key, object[key])
		ids = append(ids, id)
	}
	return ids
}

func toStrings(t testing.TB, v interface{}) []string {
	t.Helper()
	raw, ok := v.([]interface{})
	require.True(t, ok, "value is %T", v)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, item.(string))
	}
	return out
}

func toInts(t testing.TB, v interface{}) []int {
	t.Helper()
	raw, ok := v.([]interface{})
	require.True(t, ok, "value is %T", v)
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		out = append(out, int(item.(float64)))
	}
	return out
}
