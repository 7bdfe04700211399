package webui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendest.com/stations/internal/app"
	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/gtfs"
)

func newTestWebUI(t *testing.T, env appconf.Environment) *WebUI {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "topology.json"))
	require.NoError(t, err)
	topo, err := gtfs.ParseTopology(data)
	require.NoError(t, err)

	c := clock.NewMockClock(time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC))
	manager, err := gtfs.NewMockManager(topo, c)
	require.NoError(t, err)

	return &WebUI{Application: &app.Application{
		Config:      appconf.Config{Env: env},
		GtfsManager: manager,
		Clock:       c,
	}}
}

func getDebug(webUI *WebUI, query string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/debug/"+query, nil))
	return rr
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI := &WebUI{Application: &app.Application{Config: appconf.Config{Env: appconf.Production}}}

	rr := getDebug(webUI, "?dataType=stations")
	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_DataTypes(t *testing.T) {
	webUI := newTestWebUI(t, appconf.Development)
	require.NoError(t, webUI.GtfsManager.MockAddTripUpdate("l", "L", map[string]time.Duration{"L03S": 4 * time.Minute}))

	tests := []struct {
		dataType string
		title    string
		contains string
	}{
		{dataType: "topology", title: "Topology - Snapshot", contains: "mock"},
		{dataType: "stations", title: "Topology - Stations", contains: "Lower East Side"},
		{dataType: "trains", title: "Topology - Trains", contains: "#ff6319"},
		{dataType: "routings", title: "Topology - Routings", contains: "M18S"},
		{dataType: "feed", title: "Realtime - Merged Feed", contains: "L03S"},
		{dataType: "feeds", title: "Realtime - Feed Status", contains: "[]gtfs.FeedStatus"},
		{dataType: "", title: "Choose a data type", contains: "Please use one of the following"},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			rr := getDebug(webUI, "?dataType="+tt.dataType)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			body := rr.Body.String()
			assert.Contains(t, body, "<title>"+tt.title)
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestDebugIndexHandler_NoTopology(t *testing.T) {
	manager, err := gtfs.NewMockManager(nil, nil)
	require.NoError(t, err)
	webUI := &WebUI{Application: &app.Application{
		Config:      appconf.Config{Env: appconf.Test},
		GtfsManager: manager,
	}}

	rr := getDebug(webUI, "?dataType=stations")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Topology not loaded")
}
