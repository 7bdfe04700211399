package gtfs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/transit"
)

func TestParseTopology(t *testing.T) {
	topo := loadTestTopology(t)

	assert.Equal(t, []string{"J", "L", "M"}, topo.LineIDs())
	assert.Len(t, topo.Stations(), 9)

	s, ok := topo.Station("M18")
	require.True(t, ok)
	assert.Equal(t, "M18", s.ID, "station id comes from the map key")
	assert.Equal(t, "Lower East Side", s.SecondaryName)
	assert.Equal(t, []string{"J", "M"}, s.SouthStops.Sorted())

	tr, ok := topo.Train("J")
	require.True(t, ok)
	assert.Equal(t, "Not Good", tr.Status(transit.North))
}

func TestParseTopology_Errors(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		errContains string
		violation   bool
	}{
		{name: "malformed JSON", data: `{"stations":`, errContains: "error parsing topology JSON"},
		{name: "no stations", data: `{"stations":{},"trains":[],"routings":{}}`, errContains: "no stations"},
		{name: "id mismatch", data: `{"stations":{"L03":{"id":"L01","name":"x"}}}`, errContains: `declares id "L01"`},
		{name: "bad station id", data: `{"stations":{"L0":{"name":"x"}}}`, violation: true},
		{name: "bad routing token", data: `{"stations":{"L03":{"name":"x"}},"routings":{"L":{"south":[["L03X"]]}}}`, violation: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology([]byte(tt.data))
			require.Error(t, err)
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
			assert.Equal(t, tt.violation, errors.Is(err, transit.ErrContractViolation))
		})
	}
}

func TestForceUpdate_FromLocalFile(t *testing.T) {
	manager, err := newManager(Config{TopologyURL: testTopologyPath(), Shuffle: transit.DefaultShuffleConfig()})
	require.NoError(t, err)
	assert.True(t, manager.isLocalFile)
	assert.False(t, manager.IsReady())

	_, _, err = manager.Snapshot()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, manager.ForceUpdate(context.Background()))
	assert.True(t, manager.IsReady())
	assert.True(t, manager.IsHealthy())

	info := manager.TopologyInfo()
	assert.Equal(t, sourceFile, info.Source)
	assert.Equal(t, manager.Topology().Version(), info.Version)
	assert.False(t, info.LastUpdated.IsZero())
}

func TestForceUpdate_RemoteHotSwap(t *testing.T) {
	original, err := os.ReadFile(testTopologyPath())
	require.NoError(t, err)
	smaller := []byte(`{"stations":{"G22":{"name":"Court Sq","south_stops":["G"]}},` +
		`"trains":[{"id":"G","name":"G","color":"#6cbe45"}],` +
		`"routings":{"G":{"south":[["G22S","F27S"]]}}}`)

	var mu sync.Mutex
	body := original
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotHeader = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	manager, err := newManager(Config{
		TopologyURL:     server.URL + "/topology.json",
		TopologyHeaders: map[string]string{"x-api-key": "abc"},
		Shuffle:         transit.DefaultShuffleConfig(),
	})
	require.NoError(t, err)
	assert.False(t, manager.isLocalFile)

	require.NoError(t, manager.ForceUpdate(context.Background()))
	mu.Lock()
	assert.Equal(t, "abc", gotHeader)
	mu.Unlock()
	first := manager.Topology()
	assert.Equal(t, sourceRemote, manager.TopologyInfo().Source)

	// A reader holding the old snapshot is unaffected by the swap.
	held, ok := first.Station("L03")
	require.True(t, ok)

	mu.Lock()
	body = smaller
	mu.Unlock()
	require.NoError(t, manager.ForceUpdate(context.Background()))
	second := manager.Topology()
	assert.NotEqual(t, first.Version(), second.Version())
	assert.Equal(t, []string{"G"}, second.LineIDs())
	assert.Equal(t, "Union Sq - 14 St", held.Name)
	_, ok = first.Station("L03")
	assert.True(t, ok)

	// Same content again: no new snapshot is published.
	require.NoError(t, manager.ForceUpdate(context.Background()))
	assert.Same(t, second, manager.Topology())
}

func TestForceUpdate_FailureKeepsSnapshot(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		http.ServeFile(w, r, testTopologyPath())
	}))
	defer server.Close()

	manager, err := newManager(Config{TopologyURL: server.URL, Shuffle: transit.DefaultShuffleConfig()})
	require.NoError(t, err)
	require.NoError(t, manager.ForceUpdate(context.Background()))
	before := manager.Topology()

	status.Store(http.StatusInternalServerError)
	err = manager.ForceUpdate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Same(t, before, manager.Topology())
}

func TestForceUpdate_PersistsToStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "topology.db")
	ctx := context.Background()

	manager, err := InitGTFSManager(ctx, Config{
		TopologyURL:    testTopologyPath(),
		TopologyDBPath: dbPath,
		Shuffle:        transit.DefaultShuffleConfig(),
		Env:            appconf.Development,
	})
	require.NoError(t, err)
	version := manager.Topology().Version()

	meta, err := manager.TopoDB.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, version, meta.Version)
	assert.Equal(t, testTopologyPath(), meta.Source)
	manager.Shutdown()

	// The source is gone; the stored snapshot takes over.
	restarted, err := InitGTFSManager(ctx, Config{
		TopologyURL:    filepath.Join(t.TempDir(), "missing.json"),
		TopologyDBPath: dbPath,
		Shuffle:        transit.DefaultShuffleConfig(),
		Env:            appconf.Development,
	})
	require.NoError(t, err)
	defer restarted.Shutdown()

	assert.Equal(t, version, restarted.Topology().Version())
	assert.Equal(t, sourceDatabase, restarted.TopologyInfo().Source)
}

func TestInitGTFSManager_NoTopologyAnywhere(t *testing.T) {
	_, err := InitGTFSManager(context.Background(), Config{
		TopologyURL: filepath.Join(t.TempDir(), "missing.json"),
		Shuffle:     transit.DefaultShuffleConfig(),
		Env:         appconf.Test,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no topology available")
}

func TestInitGTFSManager_InvalidShuffle(t *testing.T) {
	_, err := InitGTFSManager(context.Background(), Config{
		TopologyURL: testTopologyPath(),
		Shuffle:     transit.ShuffleConfig{LineID: "M", StationIDs: []string{"M1"}},
		Env:         appconf.Test,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, transit.ErrContractViolation)
}
