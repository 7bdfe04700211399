package restapi

import (
	"github.com/tidwall/rtree"

	"weekendest.com/stations/internal/transit"
	"weekendest.com/stations/internal/utils"
)

// stationIndex is an R-tree of station points for one topology version.
type stationIndex struct {
	version string
	tree    rtree.RTreeG[transit.Station]
}

func newStationIndex(topo *transit.Topology) *stationIndex {
	idx := &stationIndex{version: topo.Version()}
	for _, station := range topo.Stations() {
		if !station.HasLocation() {
			continue
		}
		point := [2]float64{station.Longitude, station.Latitude}
		idx.tree.Insert(point, point, station)
	}
	return idx
}

// within returns the stations inside bounds, in no particular order.
func (idx *stationIndex) within(bounds utils.CoordinateBounds) []transit.Station {
	var out []transit.Station
	idx.tree.Search(bounds.Min(), bounds.Max(), func(_, _ [2]float64, station transit.Station) bool {
		out = append(out, station)
		return true
	})
	return out
}

// stationIndexFor returns the index for topo, rebuilding it after a swap.
func (api *RestAPI) stationIndexFor(topo *transit.Topology) *stationIndex {
	if idx := api.nearbyIndex.Load(); idx != nil && idx.version == topo.Version() {
		return idx
	}

	api.nearbyIndexMu.Lock()
	defer api.nearbyIndexMu.Unlock()
	if idx := api.nearbyIndex.Load(); idx != nil && idx.version == topo.Version() {
		return idx
	}
	idx := newStationIndex(topo)
	api.nearbyIndex.Store(idx)
	return idx
}
