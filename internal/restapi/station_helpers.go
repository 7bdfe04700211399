package restapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"weekendest.com/stations/internal/models"
	"weekendest.com/stations/internal/transit"
	"weekendest.com/stations/internal/utils"
)

// normalizeID makes station and route ids case-insensitive.
func normalizeID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// lookupStation resolves the {id} path value, answering 404 itself when the
// station is unknown.
func (api *RestAPI) lookupStation(w http.ResponseWriter, r *http.Request, topo *transit.Topology) (transit.Station, bool) {
	id := normalizeID(utils.ExtractIDFromParams(r))
	station, ok := topo.Station(id)
	if !ok {
		api.sendNotFound(w, r)
		return transit.Station{}, false
	}
	return station, true
}

func parseDirectionParam(r *http.Request, fieldErrors map[string][]string) (transit.Direction, map[string][]string) {
	raw := r.URL.Query().Get("direction")
	if raw == "" {
		return "", fieldErrors
	}
	dir, err := transit.ParseDirection(raw)
	if err != nil {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors["direction"] = append(fieldErrors["direction"], `must be "south" or "north"`)
	}
	return dir, fieldErrors
}

func trainBullets(topo *transit.Topology, lineIDs []string) []models.TrainBullet {
	bullets := make([]models.TrainBullet, 0, len(lineIDs))
	for _, id := range lineIDs {
		train, known := topo.Train(id)
		bullets = append(bullets, models.NewTrainBullet(id, train, known))
	}
	return bullets
}

func stationSummary(topo *transit.Topology, station transit.Station) models.StationSummary {
	return models.NewStationSummary(station, trainBullets(topo, transit.SortedServingLines(station.Stops())))
}

// destinationNames is Engine.DestinationNames behind the LRU cache. Entries
// are keyed by topology version, so a swap never serves stale names.
func (api *RestAPI) destinationNames(topo *transit.Topology, station transit.Station, dir transit.Direction) ([]string, error) {
	key := fmt.Sprintf("%s|%s|%s", topo.Version(), station.ID, dir)
	if cached, err := api.destinations.Get(key); err == nil {
		if api.Metrics != nil {
			api.Metrics.DestinationCacheHits.Inc()
		}
		return cached.([]string), nil
	}
	if api.Metrics != nil {
		api.Metrics.DestinationCacheMisses.Inc()
	}

	names, err := api.GtfsManager.Engine().DestinationNames(topo, station, dir)
	if err != nil {
		return nil, err
	}
	_ = api.destinations.Set(key, names)
	return names, nil
}

func joinDestinations(names []string) string {
	return transit.DisplayName(strings.Join(names, ", "))
}

// trainArrivals builds one line's row of a direction panel.
func (api *RestAPI) trainArrivals(topo *transit.Topology, feed *transit.Feed, station transit.Station, lineID string, dir transit.Direction, now time.Time) (models.TrainArrivals, error) {
	engine := api.GtfsManager.Engine()

	effective, err := engine.EffectiveDirection(lineID, station.ID, dir)
	if err != nil {
		return models.TrainArrivals{}, err
	}
	minutes, err := engine.NearestArrivals(lineID, station, dir, feed, now, transit.DefaultArrivalLimit)
	if err != nil {
		return models.TrainArrivals{}, err
	}

	train, known := topo.Train(lineID)
	status := train.Status(dir)
	return models.TrainArrivals{
		TrainBullet:        models.NewTrainBullet(lineID, train, known),
		Status:             status,
		StatusColor:        transit.StatusColor(status),
		EffectiveDirection: string(effective),
		Arrivals:           minutes,
		ArrivalsText:       transit.FormatArrivals(minutes),
	}, nil
}

// buildStationDetails assembles the station page: one panel per direction
// with its destinations and the arrivals of every serving line, followed by
// the walking transfers.
func (api *RestAPI) buildStationDetails(topo *transit.Topology, feed *transit.Feed, station transit.Station, now time.Time) (models.StationDetails, error) {
	details := models.StationDetails{
		ID:              station.ID,
		Name:            station.Name,
		DisplayName:     transit.DisplayName(station.Name),
		SecondaryName:   station.SecondaryName,
		Latitude:        station.Latitude,
		Longitude:       station.Longitude,
		Directions:      make([]models.DirectionDetails, 0, len(transit.Directions)),
		Transfers:       []models.Transfer{},
		Share:           models.NewShareInfo(station),
		TopologyVersion: topo.Version(),
	}
	if generated := feed.GeneratedAt(); !generated.IsZero() {
		details.FeedGeneratedAt = generated.UnixMilli()
	}

	for _, dir := range transit.Directions {
		names, err := api.destinationNames(topo, station, dir)
		if err != nil {
			return models.StationDetails{}, err
		}
		panel := models.DirectionDetails{
			Direction:        string(dir),
			Destinations:     joinDestinations(names),
			DestinationNames: names,
			Trains:           []models.TrainArrivals{},
		}
		for _, lineID := range transit.SortedServingLines(station.StopsFor(dir)) {
			row, err := api.trainArrivals(topo, feed, station, lineID, dir, now)
			if err != nil {
				return models.StationDetails{}, err
			}
			panel.Trains = append(panel.Trains, row)
		}
		details.Directions = append(details.Directions, panel)
	}

	for _, id := range station.Transfers.Sorted() {
		transfer, ok := topo.Station(id)
		if !ok {
			continue
		}
		details.Transfers = append(details.Transfers, models.Transfer{StationSummary: stationSummary(topo, transfer)})
	}
	return details, nil
}
