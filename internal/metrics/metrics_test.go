package metrics

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()

	assert.NotNil(t, m.Registry)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.FeedFetchesTotal)
	assert.NotNil(t, m.TopologyStations)
	assert.NotNil(t, m.DestinationCacheHits)
	assert.NotNil(t, m.DBConnectionsOpen)
	assert.Nil(t, m.logger)
}

func TestMetricNamesArePrefixed(t *testing.T) {
	m := New()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/stations", "200").Inc()
	m.FeedFetchesTotal.WithLabelValues("ace", ResultSuccess).Inc()

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, f := range families {
		assert.True(t, strings.HasPrefix(f.GetName(), "weekendest_"), f.GetName())
	}
}

func TestObserveFeedFetch(t *testing.T) {
	m := New()
	at := time.Unix(1718440200, 0)

	m.ObserveFeedFetch("ace", nil, 200*time.Millisecond, 120, 3, at)
	m.ObserveFeedFetch("ace", nil, 100*time.Millisecond, 118, 0, at.Add(30*time.Second))
	m.ObserveFeedFetch("ace", errors.New("timeout"), 10*time.Second, 0, 0, at.Add(time.Minute))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.FeedFetchesTotal.WithLabelValues("ace", ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedFetchesTotal.WithLabelValues("ace", ResultError)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.FeedDroppedEstimatesTotal.WithLabelValues("ace")))
	assert.Equal(t, float64(118), testutil.ToFloat64(m.FeedEstimates.WithLabelValues("ace")), "a failed fetch keeps the last count")
	assert.Equal(t, float64(at.Add(30*time.Second).Unix()), testutil.ToFloat64(m.FeedLastSuccessTimestamp.WithLabelValues("ace")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FeedFetchDuration))
}

func TestObserveTopology(t *testing.T) {
	m := New()

	m.ObserveTopology("remote", ResultSuccess, 472, 26)
	m.ObserveTopology("remote", ResultError, 0, 0)
	m.ObserveTopology("database", ResultStale, 470, 25)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.TopologyLoadsTotal.WithLabelValues("remote", ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TopologyLoadsTotal.WithLabelValues("remote", ResultError)))
	assert.Equal(t, float64(470), testutil.ToFloat64(m.TopologyStations))
	assert.Equal(t, float64(25), testutil.ToFloat64(m.TopologyLines))
}

func TestStartDBStatsCollector_NilDB(t *testing.T) {
	m := New()
	m.StartDBStatsCollector(nil, time.Second)
	assert.False(t, m.collectorStarted.Load())
}

func TestStartDBStatsCollector_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	m := New()
	m.StartDBStatsCollector(db, 100*time.Millisecond)
	assert.True(t, m.collectorStarted.Load())

	m.StartDBStatsCollector(db, 100*time.Millisecond)
	assert.True(t, m.collectorStarted.Load())

	m.Shutdown()
}

func TestStartDBStatsCollector_CollectsStats(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, db.Ping())

	m := New()
	m.StartDBStatsCollector(db, 20*time.Millisecond)
	defer m.Shutdown()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.DBConnectionsOpen) >= 1
	}, time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.DBConnectionsIdle), float64(0))
}

func TestShutdown(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	m := New()
	m.StartDBStatsCollector(db, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not complete within timeout")
	}

	// Repeated and collector-less shutdowns are no-ops.
	m.Shutdown()
	New().Shutdown()
}
