package restapi

import (
	"net/http"
	"sort"

	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/utils"
)

const (
	defaultNearbyRadius = 800.0
	maxNearbyRadius     = 5000.0
	defaultNearbyLimit  = 10
	maxNearbyLimit      = 50
)

type nearbyParams struct {
	Lat    float64
	Lon    float64
	Radius float64
	Limit  int
}

func parseNearbyParams(r *http.Request) (nearbyParams, map[string][]string) {
	query := r.URL.Query()
	params := nearbyParams{Radius: defaultNearbyRadius, Limit: defaultNearbyLimit}

	var fieldErrors map[string][]string
	addError := func(field, msg string) {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors[field] = append(fieldErrors[field], msg)
	}

	for _, key := range []string{"lat", "lon"} {
		if query.Get(key) == "" {
			addError(key, "is required")
		}
	}
	params.Lat, fieldErrors = utils.ParseFloatParam(query, "lat", fieldErrors)
	params.Lon, fieldErrors = utils.ParseFloatParam(query, "lon", fieldErrors)
	if len(fieldErrors) == 0 && !utils.ValidCoordinate(params.Lat, params.Lon) {
		addError("lat", "coordinate out of range")
	}

	if query.Get("radius") != "" {
		var radius float64
		radius, fieldErrors = utils.ParseFloatParam(query, "radius", fieldErrors)
		switch {
		case radius <= 0:
			addError("radius", "must be positive")
		case radius > maxNearbyRadius:
			params.Radius = maxNearbyRadius
		default:
			params.Radius = radius
		}
	}

	if query.Get("limit") != "" {
		var limit int
		limit, fieldErrors = utils.ParseIntParam(query, "limit", fieldErrors)
		switch {
		case limit <= 0:
			addError("limit", "must be positive")
		case limit > maxNearbyLimit:
			params.Limit = maxNearbyLimit
		default:
			params.Limit = limit
		}
	}

	return params, fieldErrors
}

// nearbyStationsHandler lists stations within a radius of a point, nearest
// first.
func (api *RestAPI) nearbyStationsHandler(w http.ResponseWriter, r *http.Request) {
	params, fieldErrors := parseNearbyParams(r)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	topo, _, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}

	bounds := utils.CalculateBounds(params.Lat, params.Lon, params.Radius)
	list := make([]models.NearbyStation, 0)
	for _, station := range api.stationIndexFor(topo).within(bounds) {
		distance := utils.Distance(params.Lat, params.Lon, station.Latitude, station.Longitude)
		if distance > params.Radius {
			continue
		}
		list = append(list, models.NearbyStation{
			StationSummary: stationSummary(topo, station),
			DistanceMeters: distance,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].DistanceMeters != list[j].DistanceMeters {
			return list[i].DistanceMeters < list[j].DistanceMeters
		}
		return list[i].ID < list[j].ID
	})

	limitExceeded := len(list) > params.Limit
	if limitExceeded {
		list = list[:params.Limit]
	}

	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.Clock))
}
