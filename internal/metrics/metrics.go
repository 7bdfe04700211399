// Package metrics provides Prometheus metrics for the station service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weekendest"

// Fetch results recorded on FeedFetchesTotal and TopologyLoadsTotal.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultStale   = "stale"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	// HTTPUnavailableTotal counts 503s, answered while no snapshot is ready
	// or the manager is unhealthy.
	HTTPUnavailableTotal *prometheus.CounterVec

	// Real-time feed metrics, labelled by feed id
	FeedFetchesTotal          *prometheus.CounterVec
	FeedFetchDuration         *prometheus.HistogramVec
	FeedDroppedEstimatesTotal *prometheus.CounterVec
	FeedLastSuccessTimestamp  *prometheus.GaugeVec
	FeedEstimates             *prometheus.GaugeVec

	// Topology snapshot metrics
	TopologyLoadsTotal *prometheus.CounterVec
	TopologyStations   prometheus.Gauge
	TopologyLines      prometheus.Gauge

	// Destination cache metrics
	DestinationCacheHits   prometheus.Counter
	DestinationCacheMisses prometheus.Counter

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		logger:   logger,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		HTTPUnavailableTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_unavailable_total",
			Help:      "Requests refused with 503 because station data was not available",
		}, []string{"path"}),

		FeedFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "GTFS-realtime fetch attempts by feed and result",
		}, []string{"feed", "result"}),

		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Time spent fetching and decoding a GTFS-realtime feed",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),

		FeedDroppedEstimatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_dropped_estimates_total",
			Help:      "Stop time updates discarded because of malformed stop ids or missing times",
		}, []string{"feed"}),

		FeedLastSuccessTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch per feed",
		}, []string{"feed"}),

		FeedEstimates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_estimates",
			Help:      "Arrival estimates held from the last successful fetch per feed",
		}, []string{"feed"}),

		TopologyLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_loads_total",
			Help:      "Topology load attempts by source and result",
		}, []string{"source", "result"}),

		TopologyStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topology_stations",
			Help:      "Stations in the published topology snapshot",
		}),

		TopologyLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topology_lines",
			Help:      "Lines with routings in the published topology snapshot",
		}),

		DestinationCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destination_cache_hits_total",
			Help:      "Destination lookups served from cache",
		}),

		DestinationCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destination_cache_misses_total",
			Help:      "Destination lookups resolved against the topology",
		}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		}),

		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use",
		}),

		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		}),

		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_wait_seconds_total",
			Help:      "Total time blocked waiting for a database connection",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPUnavailableTotal,
		m.FeedFetchesTotal,
		m.FeedFetchDuration,
		m.FeedDroppedEstimatesTotal,
		m.FeedLastSuccessTimestamp,
		m.FeedEstimates,
		m.TopologyLoadsTotal,
		m.TopologyStations,
		m.TopologyLines,
		m.DestinationCacheHits,
		m.DestinationCacheMisses,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)

	return m
}

// ObserveFeedFetch records one poll of a real-time feed. dropped counts stop
// time updates that could not become arrival estimates.
func (m *Metrics) ObserveFeedFetch(feedID string, err error, duration time.Duration, estimates, dropped int, at time.Time) {
	m.FeedFetchDuration.WithLabelValues(feedID).Observe(duration.Seconds())
	if err != nil {
		m.FeedFetchesTotal.WithLabelValues(feedID, ResultError).Inc()
		return
	}
	m.FeedFetchesTotal.WithLabelValues(feedID, ResultSuccess).Inc()
	m.FeedEstimates.WithLabelValues(feedID).Set(float64(estimates))
	m.FeedLastSuccessTimestamp.WithLabelValues(feedID).Set(float64(at.Unix()))
	if dropped > 0 {
		m.FeedDroppedEstimatesTotal.WithLabelValues(feedID).Add(float64(dropped))
	}
}

// ObserveTopology records a topology load attempt and, on success, the size
// of the snapshot that was published.
func (m *Metrics) ObserveTopology(source, result string, stations, lines int) {
	m.TopologyLoadsTotal.WithLabelValues(source, result).Inc()
	if result == ResultError {
		return
	}
	m.TopologyStations.Set(float64(stations))
	m.TopologyLines.Set(float64(lines))
}

// StartDBStatsCollector starts a goroutine that periodically copies the
// connection pool statistics of db into the DB gauges. It is idempotent;
// call Shutdown to stop it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup BEFORE exposing cancel to avoid race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// It is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
