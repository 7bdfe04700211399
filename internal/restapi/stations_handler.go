package restapi

import (
	"net/http"

	"weekendest.com/stations/internal/models"
)

// stationsHandler lists every station, optionally only those served by
// ?route=.
func (api *RestAPI) stationsHandler(w http.ResponseWriter, r *http.Request) {
	topo, _, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}

	route := normalizeID(r.URL.Query().Get("route"))
	list := make([]models.StationSummary, 0)
	for _, station := range topo.Stations() {
		if route != "" && !station.Stops().Contains(route) {
			continue
		}
		list = append(list, stationSummary(topo, station))
	}

	api.sendResponse(w, r, models.NewListResponse(list, false, api.Clock))
}

func (api *RestAPI) stationHandler(w http.ResponseWriter, r *http.Request) {
	topo, feed, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}
	station, ok := api.lookupStation(w, r, topo)
	if !ok {
		return
	}

	details, err := api.buildStationDetails(topo, feed, station, api.Clock.Now())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(details, api.Clock))
}
