package restapi

import (
	"net/http"

	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/models"
)

// currentTimeHandler reports the clock every arrival is computed against,
// and whether a captured feed is being replayed.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	if !api.GtfsManager.IsHealthy() {
		api.sendError(w, r, http.StatusServiceUnavailable, "station data unavailable")
		return
	}

	source := clock.Describe(api.Clock)
	replaying := source == clock.SourceEnv || source == clock.SourceFile
	timeData := models.NewCurrentTimeData(api.Clock.Now(), clock.NewYork(), source, replaying)

	api.sendResponse(w, r, models.NewOKResponse(timeData, api.Clock))
}
