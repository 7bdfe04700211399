package restapi

import (
	"net/http"

	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
)

// destinationsHandler returns the terminals reachable from a station. Without
// ?direction= both directions are listed, south first.
func (api *RestAPI) destinationsHandler(w http.ResponseWriter, r *http.Request) {
	dir, fieldErrors := parseDirectionParam(r, nil)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	topo, _, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}
	station, ok := api.lookupStation(w, r, topo)
	if !ok {
		return
	}

	directions := transit.Directions
	if dir != "" {
		directions = []transit.Direction{dir}
	}

	list := make([]models.DestinationsEntry, 0, len(directions))
	for _, d := range directions {
		names, err := api.destinationNames(topo, station, d)
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		list = append(list, models.DestinationsEntry{
			StationID:        station.ID,
			Direction:        string(d),
			Destinations:     joinDestinations(names),
			DestinationNames: names,
			TopologyVersion:  topo.Version(),
		})
	}

	api.sendResponse(w, r, models.NewListResponse(list, false, api.Clock))
}
