package restapi

import (
	"net/http"

	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
	"weekendest.com/stations/internal/utils"
)

const maxArrivalLimit = 20

type arrivalsParams struct {
	Route     string
	Direction transit.Direction
	Limit     int
}

func parseArrivalsParams(r *http.Request) (arrivalsParams, map[string][]string) {
	query := r.URL.Query()
	params := arrivalsParams{Route: normalizeID(query.Get("route")), Limit: transit.DefaultArrivalLimit}

	var fieldErrors map[string][]string
	addError := func(field, msg string) {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors[field] = append(fieldErrors[field], msg)
	}

	if params.Route == "" {
		addError("route", "is required")
	}

	params.Direction, fieldErrors = parseDirectionParam(r, fieldErrors)
	if query.Get("direction") == "" {
		addError("direction", "is required")
	}

	if query.Get("limit") != "" {
		var limit int
		limit, fieldErrors = utils.ParseIntParam(query, "limit", fieldErrors)
		switch {
		case limit < 0:
			addError("limit", "must be a non-negative integer")
		case limit > maxArrivalLimit:
			params.Limit = maxArrivalLimit
		default:
			params.Limit = limit
		}
	}

	return params, fieldErrors
}

// arrivalsHandler answers the minutes until the next trains of one line at a
// station in one direction.
func (api *RestAPI) arrivalsHandler(w http.ResponseWriter, r *http.Request) {
	params, fieldErrors := parseArrivalsParams(r)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	topo, feed, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}
	station, ok := api.lookupStation(w, r, topo)
	if !ok {
		return
	}

	engine := api.GtfsManager.Engine()
	effective, err := engine.EffectiveDirection(params.Route, station.ID, params.Direction)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	minutes, err := engine.NearestArrivals(params.Route, station, params.Direction, feed, api.Clock.Now(), params.Limit)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	entry := models.ArrivalsEntry{
		StationID:          station.ID,
		RouteID:            params.Route,
		Direction:          string(params.Direction),
		EffectiveDirection: string(effective),
		Limit:              params.Limit,
		Arrivals:           minutes,
		ArrivalsText:       transit.FormatArrivals(minutes),
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
