package transit

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Station is a single station record. Set-valued fields are read-only once
// the station is part of a Topology.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SecondaryName string  `json:"secondary_name,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	SouthStops    IDSet   `json:"south_stops"`
	NorthStops    IDSet   `json:"north_stops"`
	Transfers     IDSet   `json:"transfers"`
}

// StopsFor returns the lines serving the station in the given direction.
func (s Station) StopsFor(d Direction) IDSet {
	switch d {
	case South:
		return s.SouthStops
	case North:
		return s.NorthStops
	}
	return nil
}

// Stops returns every line serving the station in either direction.
func (s Station) Stops() IDSet {
	return s.SouthStops.Union(s.NorthStops)
}

func (s Station) HasLocation() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// Train is a train line record.
type Train struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Color             string               `json:"color"`
	TextColor         string               `json:"text_color,omitempty"`
	DirectionStatuses map[Direction]string `json:"direction_statuses"`
}

func (t Train) Status(d Direction) string {
	return t.DirectionStatuses[d]
}

// Routings holds every known stopping pattern of one line, per direction.
// Each path is an ordered list of directed stop tokens; the last one is the
// terminal.
type Routings struct {
	South [][]string `json:"south"`
	North [][]string `json:"north"`
}

func (r Routings) Paths(d Direction) [][]string {
	switch d {
	case South:
		return r.South
	case North:
		return r.North
	}
	return nil
}

// Topology is an immutable snapshot of stations, trains and routing graphs.
type Topology struct {
	stations   map[string]Station
	stationIDs []string
	trains     map[string]Train
	trainIDs   []string
	routings   map[string]Routings
	lineIDs    []string
	version    string
}

// NewTopology validates and indexes a snapshot. Duplicate ids, malformed
// station ids, empty paths and malformed stop tokens are contract violations.
// Inputs are copied, so later changes by the caller are not observed.
func NewTopology(stations []Station, trains []Train, routings map[string]Routings) (*Topology, error) {
	t := &Topology{
		stations: make(map[string]Station, len(stations)),
		trains:   make(map[string]Train, len(trains)),
		routings: make(map[string]Routings, len(routings)),
	}

	for _, s := range stations {
		if err := validateStationID(s.ID); err != nil {
			return nil, err
		}
		if _, dup := t.stations[s.ID]; dup {
			return nil, contractViolation("duplicate station %q", s.ID)
		}
		s.SouthStops = s.SouthStops.clone()
		s.NorthStops = s.NorthStops.clone()
		s.Transfers = s.Transfers.clone()
		t.stations[s.ID] = s
		t.stationIDs = append(t.stationIDs, s.ID)
	}
	sort.Strings(t.stationIDs)

	for _, tr := range trains {
		if tr.ID == "" {
			return nil, contractViolation("train with empty id")
		}
		if _, dup := t.trains[tr.ID]; dup {
			return nil, contractViolation("duplicate train %q", tr.ID)
		}
		statuses := make(map[Direction]string, len(tr.DirectionStatuses))
		for d, label := range tr.DirectionStatuses {
			if err := d.validate(); err != nil {
				return nil, err
			}
			statuses[d] = label
		}
		tr.DirectionStatuses = statuses
		t.trains[tr.ID] = tr
		t.trainIDs = append(t.trainIDs, tr.ID)
	}
	sort.Strings(t.trainIDs)

	for lineID, r := range routings {
		if lineID == "" {
			return nil, contractViolation("routing with empty line id")
		}
		south, err := copyPaths(lineID, r.South)
		if err != nil {
			return nil, err
		}
		north, err := copyPaths(lineID, r.North)
		if err != nil {
			return nil, err
		}
		t.routings[lineID] = Routings{South: south, North: north}
		t.lineIDs = append(t.lineIDs, lineID)
	}
	sort.Strings(t.lineIDs)

	t.version = t.digest()
	return t, nil
}

func copyPaths(lineID string, paths [][]string) ([][]string, error) {
	out := make([][]string, 0, len(paths))
	for i, path := range paths {
		if len(path) == 0 {
			return nil, contractViolation("line %q path %d is empty", lineID, i)
		}
		for _, token := range path {
			if _, err := ParseStopToken(token); err != nil {
				return nil, err
			}
		}
		out = append(out, append([]string(nil), path...))
	}
	return out, nil
}

// Station looks up a station by id. Unknown ids are routine (stale transfer
// references, termini missing from the snapshot) and report false.
func (t *Topology) Station(id string) (Station, bool) {
	s, ok := t.stations[id]
	return s, ok
}

// Train looks up a train line by id.
func (t *Topology) Train(id string) (Train, bool) {
	tr, ok := t.trains[id]
	return tr, ok
}

// Routings returns the routing graph of a line.
func (t *Topology) Routings(lineID string) (Routings, bool) {
	r, ok := t.routings[lineID]
	return r, ok
}

// LineIDs lists the lines that have routing graphs, sorted.
func (t *Topology) LineIDs() []string {
	return append([]string(nil), t.lineIDs...)
}

// Stations lists every station sorted by id.
func (t *Topology) Stations() []Station {
	out := make([]Station, 0, len(t.stationIDs))
	for _, id := range t.stationIDs {
		out = append(out, t.stations[id])
	}
	return out
}

// Trains lists every train line sorted by id.
func (t *Topology) Trains() []Train {
	out := make([]Train, 0, len(t.trainIDs))
	for _, id := range t.trainIDs {
		out = append(out, t.trains[id])
	}
	return out
}

// Version is a content digest of the snapshot. Two topologies built from the
// same data share a version.
func (t *Topology) Version() string {
	return t.version
}

func (t *Topology) digest() string {
	h := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.WriteString("\x00")
		}
	}

	for _, id := range t.stationIDs {
		s := t.stations[id]
		write("station", s.ID, s.Name, s.SecondaryName,
			strconv.FormatFloat(s.Latitude, 'f', -1, 64),
			strconv.FormatFloat(s.Longitude, 'f', -1, 64))
		write(s.SouthStops.Sorted()...)
		write("|")
		write(s.NorthStops.Sorted()...)
		write("|")
		write(s.Transfers.Sorted()...)
	}
	for _, id := range t.trainIDs {
		tr := t.trains[id]
		write("train", tr.ID, tr.Name, tr.Color, tr.TextColor, tr.Status(South), tr.Status(North))
	}
	for _, id := range t.lineIDs {
		r := t.routings[id]
		for _, d := range Directions {
			write("routing", id, string(d))
			for _, path := range r.Paths(d) {
				write(path...)
				write("|")
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
