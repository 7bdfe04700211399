package topodb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/transit"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleTopology(t *testing.T) *transit.Topology {
	t.Helper()
	topo, err := transit.NewTopology(
		[]transit.Station{
			{ID: "L03", Name: "Union Sq - 14 St", Latitude: 40.734673, Longitude: -73.989951,
				SouthStops: transit.NewIDSet("L"), NorthStops: transit.NewIDSet("L"), Transfers: transit.NewIDSet("635", "R20", "X99")},
			{ID: "L01", Name: "8 Av", SecondaryName: "14 St", SouthStops: transit.NewIDSet("L")},
			{ID: "L29", Name: "Canarsie - Rockaway Pkwy", NorthStops: transit.NewIDSet("L")},
		},
		[]transit.Train{
			{ID: "L", Name: "L", Color: "#a7a9ac", TextColor: "#000000",
				DirectionStatuses: map[transit.Direction]string{transit.South: "Good Service", transit.North: "Delay"}},
			{ID: "S", Name: "S", Color: "#808183"},
		},
		map[string]transit.Routings{
			"L": {
				South: [][]string{{"L01S", "L03S", "L29S"}, {"L01S", "L03S"}},
				North: [][]string{{"L29N", "L03N", "L01N"}},
			},
			"S": {},
		},
	)
	require.NoError(t, err)
	return topo
}

func TestNewClient_RejectsFileDBInTests(t *testing.T) {
	_, err := NewClient(Config{DBPath: filepath.Join(t.TempDir(), "topology.db"), Env: appconf.Test})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory")
}

func TestNewClient_FileDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.db")
	client, err := NewClient(Config{DBPath: path, Env: appconf.Development})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.Equal(t, path, client.GetDBPath())
	require.NoError(t, client.DB.Ping())
}

func TestLoadTopology_Empty(t *testing.T) {
	client := newTestClient(t)

	_, err := client.LoadTopology(context.Background())
	assert.ErrorIs(t, err, ErrNoTopology)

	_, err = client.Meta(context.Background())
	assert.ErrorIs(t, err, ErrNoTopology)
}

func TestSaveAndLoadTopology(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	topo := sampleTopology(t)
	savedAt := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)

	require.NoError(t, client.SaveTopology(ctx, topo, "https://example.com/topology.json", savedAt))

	loaded, err := client.LoadTopology(ctx)
	require.NoError(t, err)
	assert.Equal(t, topo.Version(), loaded.Version())
	assert.Equal(t, topo.LineIDs(), loaded.LineIDs())

	s, ok := loaded.Station("L03")
	require.True(t, ok)
	assert.Equal(t, "Union Sq - 14 St", s.Name)
	assert.InDelta(t, 40.734673, s.Latitude, 1e-9)
	assert.Equal(t, []string{"635", "R20", "X99"}, s.Transfers.Sorted())

	s, _ = loaded.Station("L01")
	assert.Equal(t, "14 St", s.SecondaryName)
	assert.Empty(t, s.NorthStops.Sorted())

	tr, ok := loaded.Train("L")
	require.True(t, ok)
	assert.Equal(t, "Delay", tr.Status(transit.North))
	assert.Equal(t, "#000000", tr.TextColor)

	r, ok := loaded.Routings("L")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"L01S", "L03S", "L29S"}, {"L01S", "L03S"}}, r.South)
	assert.Equal(t, [][]string{{"L29N", "L03N", "L01N"}}, r.North)

	_, ok = loaded.Routings("S")
	assert.True(t, ok, "lines without paths survive a round trip")

	meta, err := client.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, topo.Version(), meta.Version)
	assert.Equal(t, "https://example.com/topology.json", meta.Source)
	assert.True(t, savedAt.Equal(meta.SavedAt))
}

func TestSaveTopology_Replaces(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.SaveTopology(ctx, sampleTopology(t), "first", time.Now()))

	smaller, err := transit.NewTopology(
		[]transit.Station{{ID: "G22", Name: "Court Sq", SouthStops: transit.NewIDSet("G")}},
		[]transit.Train{{ID: "G", Name: "G"}},
		map[string]transit.Routings{"G": {South: [][]string{{"G22S", "F27S"}}}},
	)
	require.NoError(t, err)
	require.NoError(t, client.SaveTopology(ctx, smaller, "second", time.Now()))

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["stations"])
	assert.Equal(t, 1, counts["station_stops"])
	assert.Equal(t, 0, counts["station_transfers"])
	assert.Equal(t, 1, counts["trains"])
	assert.Equal(t, 0, counts["train_statuses"])
	assert.Equal(t, 1, counts["routing_lines"])
	assert.Equal(t, 2, counts["routing_paths"])

	loaded, err := client.LoadTopology(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller.Version(), loaded.Version())
}

func TestSaveTopology_CanceledContextKeepsPreviousSnapshot(t *testing.T) {
	client := newTestClient(t)
	topo := sampleTopology(t)
	require.NoError(t, client.SaveTopology(context.Background(), topo, "first", time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.SaveTopology(ctx, topo, "second", time.Now()))

	meta, err := client.Meta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", meta.Source)
}

func TestTableCounts_IgnoresUnknownTables(t *testing.T) {
	client := newTestClient(t)
	_, err := client.DB.Exec("CREATE TABLE scratch (id TEXT); INSERT INTO scratch VALUES ('x')")
	require.NoError(t, err)

	counts, err := client.TableCounts(context.Background())
	require.NoError(t, err)
	_, exists := counts["scratch"]
	assert.False(t, exists)
	assert.Equal(t, 0, counts["stations"])
}
