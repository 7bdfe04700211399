package restapi

import (
	"net/http"

	"weekendest.com/stations/internal/buildinfo"
	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	shuffle := api.GtfsConfig.Shuffle
	stationIDs := append([]string{}, shuffle.StationIDs...)

	configEntry := models.ConfigModel{
		ID:          "weekendest-stations",
		Name:        "The Weekendest Stations",
		Build:       buildinfo.Properties(),
		Environment: api.Config.Env.String(),
		Shuffle: models.ShuffleModel{
			LineID:     shuffle.LineID,
			StationIDs: stationIDs,
		},
		ArrivalLimit:    transit.DefaultArrivalLimit,
		TopologyVersion: api.GtfsManager.TopologyInfo().Version,
	}

	api.sendResponse(w, r, models.NewEntryResponse(configEntry, api.Clock))
}
