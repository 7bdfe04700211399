package restapi

import (
	"net/http"

	"github.com/twpayne/go-polyline"

	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
	"weekendest.com/stations/internal/utils"
)

// routingsHandler returns every stopping pattern of a line with its terminal
// and an encoded polyline through the station coordinates.
func (api *RestAPI) routingsHandler(w http.ResponseWriter, r *http.Request) {
	topo, _, err := api.GtfsManager.Snapshot()
	if err != nil {
		api.snapshotErrorResponse(w, r, err)
		return
	}

	lineID := normalizeID(utils.ExtractIDFromParams(r))
	train, known := topo.Train(lineID)
	routings, hasRoutings := topo.Routings(lineID)
	if !known && !hasRoutings {
		api.sendNotFound(w, r)
		return
	}

	entry := models.RoutingsEntry{
		Train:    models.NewTrainBullet(lineID, train, known),
		Statuses: models.NewTrainStatuses(train),
		Paths:    []models.RoutingPath{},
	}
	for _, dir := range transit.Directions {
		for _, path := range routings.Paths(dir) {
			routingPath, err := buildRoutingPath(topo, dir, path)
			if err != nil {
				api.serverErrorResponse(w, r, err)
				return
			}
			entry.Paths = append(entry.Paths, routingPath)
		}
	}

	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}

func buildRoutingPath(topo *transit.Topology, dir transit.Direction, path []string) (models.RoutingPath, error) {
	out := models.RoutingPath{
		Direction: string(dir),
		Stops:     append([]string(nil), path...),
	}
	if len(path) == 0 {
		return out, nil
	}
	out.Terminal = path[len(path)-1]

	coords := make([][]float64, 0, len(path))
	for i, token := range path {
		parsed, err := transit.ParseStopToken(token)
		if err != nil {
			return models.RoutingPath{}, err
		}
		station, ok := topo.Station(parsed.StationID)
		if i == len(path)-1 && ok {
			out.TerminalName = transit.DisplayName(station.Name)
		}
		if !ok || !station.HasLocation() {
			out.MissingStops = append(out.MissingStops, token)
			continue
		}
		coords = append(coords, []float64{station.Latitude, station.Longitude})
	}
	out.Polyline = string(polyline.EncodeCoords(coords))
	return out, nil
}
