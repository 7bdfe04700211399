package transit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testTopology is a small slice of the subway: the L along 14th St, the A in
// Manhattan, the J/M over the Williamsburg Bridge and a G stub.
func testTopology(t *testing.T) *Topology {
	t.Helper()

	stations := []Station{
		{ID: "L01", Name: "8 Av", SouthStops: NewIDSet("L"), NorthStops: NewIDSet()},
		{ID: "L03", Name: "Union Sq - 14 St", SouthStops: NewIDSet("L"), NorthStops: NewIDSet("L"), Transfers: NewIDSet("A09", "X99")},
		{ID: "L29", Name: "Canarsie - Rockaway Pkwy", SouthStops: NewIDSet(), NorthStops: NewIDSet("L")},
		{ID: "A02", Name: "Inwood - 207 St", NorthStops: NewIDSet("A")},
		{ID: "A05", Name: "181 St", SouthStops: NewIDSet("A"), NorthStops: NewIDSet("A")},
		{ID: "A07", Name: "168 St", SouthStops: NewIDSet("A"), NorthStops: NewIDSet("A")},
		{ID: "A09", Name: "Far Rockaway", SouthStops: NewIDSet("A")},
		{ID: "M01", Name: "Middle Village - Metropolitan Av", NorthStops: NewIDSet("M")},
		{ID: "M11", Name: "Myrtle Av", SouthStops: NewIDSet("J", "M"), NorthStops: NewIDSet("J", "M")},
		{ID: "M18", Name: "Delancey St - Essex St", SouthStops: NewIDSet("J", "M"), NorthStops: NewIDSet("J", "M")},
		{ID: "M23", Name: "Broad St", SouthStops: NewIDSet("J")},
		{ID: "G22", Name: "Court Sq", SouthStops: NewIDSet("G")},
		{ID: "D43", Name: "Coney Island - Stillwell Av"},
		{ID: "J12", Name: "Jamaica Center"},
	}

	trains := []Train{
		{ID: "L", Name: "L", Color: "#a7a9ac", DirectionStatuses: map[Direction]string{South: "Good Service", North: "Delay"}},
		{ID: "A", Name: "A", Color: "#0039a6", TextColor: "#ffffff", DirectionStatuses: map[Direction]string{South: "Good Service", North: "Good Service"}},
		{ID: "M", Name: "M", Color: "#ff6319", DirectionStatuses: map[Direction]string{South: "Service Change", North: "Not Good"}},
		{ID: "J", Name: "J", Color: "#996633", DirectionStatuses: map[Direction]string{South: "Good Service", North: "Good Service"}},
		{ID: "G", Name: "G", Color: "#6cbe45"},
	}

	routings := map[string]Routings{
		"L": {
			South: [][]string{{"L01S", "L03S", "L29S"}},
			North: [][]string{{"L29N", "L03N", "L01N"}},
		},
		"A": {
			South: [][]string{
				{"A02S", "A05S", "A07S", "A09S"},
				{"A07S", "A09S"},
			},
			North: [][]string{{"A09N", "A07N", "A05N", "A02N"}},
		},
		// The M's feed and routings carry its physical direction, which is the
		// reverse of the J's labels between M11 and M18.
		"M": {
			South: [][]string{{"M01S", "M11S", "M18S", "D43S"}},
			North: [][]string{{"M18N", "M11N", "M01N"}},
		},
		"J": {
			South: [][]string{{"J12S", "M11S", "M18S", "M23S"}},
			North: [][]string{{"M23N", "M18N", "M11N", "J12N"}},
		},
		"G": {
			South: [][]string{{"G22S", "Q99S"}},
		},
	}

	topo, err := NewTopology(stations, trains, routings)
	require.NoError(t, err)
	return topo
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultShuffleConfig())
	require.NoError(t, err)
	return e
}

func station(t *testing.T, topo *Topology, id string) Station {
	t.Helper()
	s, ok := topo.Station(id)
	require.True(t, ok, "station %s missing from fixture", id)
	return s
}
