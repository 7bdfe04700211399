package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/transit"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dumpConfig = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := debugTemplate.Execute(w, debugData{Title: title, Pre: dumpConfig.Sdump(data)}); err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps one of the live snapshots. It is hidden in
// production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	manager := webUI.GtfsManager
	topo := manager.Topology()
	if topo == nil {
		writeDebugData(w, "Topology not loaded", map[string]string{"error": "no topology has been published yet"})
		return
	}

	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "topology":
		data = manager.TopologyInfo()
		title = "Topology - Snapshot"
	case "stations":
		data = topo.Stations()
		title = "Topology - Stations"
	case "trains":
		data = topo.Trains()
		title = "Topology - Trains"
	case "routings":
		routings := make(map[string]transit.Routings)
		for _, lineID := range topo.LineIDs() {
			routings[lineID], _ = topo.Routings(lineID)
		}
		data = routings
		title = "Topology - Routings"
	case "feed":
		feed := manager.Feed()
		lines := make(map[string]transit.LineArrivals)
		for _, lineID := range feed.LineIDs() {
			lines[lineID], _ = feed.Line(lineID)
		}
		data = lines
		title = "Realtime - Merged Feed (generated " + feed.GeneratedAt().Format("15:04:05") + ")"
	case "feeds":
		data = manager.FeedStatuses()
		title = "Realtime - Feed Status"
	default:
		data = map[string]string{
			"error": "Please use one of the following: topology, stations, trains, routings, feed, feeds.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
