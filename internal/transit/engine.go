package transit

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultArrivalLimit is how many upcoming arrivals a station board shows per
// line and direction.
const DefaultArrivalLimit = 2

// Engine answers station queries against caller-supplied snapshots. The only
// state it holds is the validated shuffle configuration, so one Engine may be
// shared across goroutines.
type Engine struct {
	shuffle shuffle
}

// NewEngine validates the shuffle configuration and returns an Engine.
func NewEngine(cfg ShuffleConfig) (*Engine, error) {
	s, err := newShuffle(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{shuffle: s}, nil
}

// ShuffleLine returns the id of the line whose directions are inverted.
func (e *Engine) ShuffleLine() string {
	return e.shuffle.lineID
}

// IsShuffleStation reports whether the station is in the shuffle set.
func (e *Engine) IsShuffleStation(stationID string) bool {
	return e.shuffle.atStation(stationID)
}

// EffectiveDirection returns the direction used to index the feed and the
// routing graphs for a line at a station: the opposite of requested for the
// shuffle line at a shuffle station, requested otherwise.
func (e *Engine) EffectiveDirection(lineID, stationID string, requested Direction) (Direction, error) {
	if err := requested.validate(); err != nil {
		return "", err
	}
	if e.shuffle.applies(lineID, stationID) {
		return requested.Opposite(), nil
	}
	return requested, nil
}

// DestinationNames returns the de-duplicated, sorted names of every terminal
// reachable from the station travelling in dir. Termini missing from the
// topology are dropped. Names are returned raw, without display formatting.
func (e *Engine) DestinationNames(topo *Topology, station Station, dir Direction) ([]string, error) {
	if err := validateStationID(station.ID); err != nil {
		return nil, err
	}
	if err := dir.validate(); err != nil {
		return nil, err
	}

	terminals := NewIDSet()
	collect := func(paths [][]string, token string) {
		for _, path := range paths {
			if containsToken(path, token) {
				terminals.Add(path[len(path)-1])
			}
		}
	}

	token := station.ID + dir.Suffix()
	for _, lineID := range topo.LineIDs() {
		if e.shuffle.applies(lineID, station.ID) {
			continue
		}
		r, _ := topo.Routings(lineID)
		collect(r.Paths(dir), token)
	}

	if e.shuffle.atStation(station.ID) {
		if r, ok := topo.Routings(e.shuffle.lineID); ok {
			opposite := dir.Opposite()
			collect(r.Paths(opposite), station.ID+opposite.Suffix())
		}
	}

	names := NewIDSet()
	for terminal := range terminals {
		parsed, err := ParseStopToken(terminal)
		if err != nil {
			return nil, err
		}
		if s, ok := topo.Station(parsed.StationID); ok {
			names.Add(s.Name)
		}
	}
	return names.Sorted(), nil
}

// Destinations is DestinationNames joined for display: comma separated, with
// the " - " separator inside station names replaced by an en dash. A station
// with no service in dir yields "".
func (e *Engine) Destinations(topo *Topology, station Station, dir Direction) (string, error) {
	names, err := e.DestinationNames(topo, station, dir)
	if err != nil {
		return "", err
	}
	return DisplayName(strings.Join(names, ", ")), nil
}

// NearestArrivals returns the minutes until the next trains of a line at a
// station, ascending and at most limit long. Estimates for other stations and
// estimates earlier than now are discarded. Minutes are rounded half away
// from zero, so an arrival 90 seconds out reports 2.
//
// A line or direction missing from the feed yields an empty result.
func (e *Engine) NearestArrivals(lineID string, station Station, requested Direction, feed *Feed, now time.Time, limit int) ([]int, error) {
	if err := validateStationID(station.ID); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, contractViolation("negative arrival limit %d", limit)
	}
	actual, err := e.EffectiveDirection(lineID, station.ID, requested)
	if err != nil {
		return nil, err
	}

	minutes := []int{}
	la, ok := feed.Line(lineID)
	if !ok {
		return minutes, nil
	}

	nowSeconds := float64(now.UnixNano()) / float64(time.Second)
	for _, estimate := range la.Flatten(actual) {
		token, err := ParseStopToken(estimate.StopID)
		if err != nil {
			return nil, err
		}
		if token.StationID != station.ID {
			continue
		}
		at := float64(estimate.EstimatedTime)
		if at < nowSeconds {
			continue
		}
		minutes = append(minutes, int(math.Round((at-nowSeconds)/60)))
	}

	sort.Ints(minutes)
	if len(minutes) > limit {
		minutes = minutes[:limit]
	}
	return minutes, nil
}

func containsToken(path []string, token string) bool {
	for _, t := range path {
		if t == token {
			return true
		}
	}
	return false
}
