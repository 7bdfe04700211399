// Package gtfs owns the two snapshots the station API reads: the topology
// (stations, trains, routings) and the merged GTFS-realtime arrival feed.
// Both are replaced wholesale and published with atomic pointer swaps, so
// readers never block on a refresh and never see a half-built snapshot.
package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/metrics"
	"weekendest.com/stations/internal/topodb"
	"weekendest.com/stations/internal/transit"
)

// ErrNotReady is returned when no topology has been published yet.
var ErrNotReady = errors.New("gtfs: topology not loaded")

// Manager loads, refreshes and publishes the topology and feed snapshots.
type Manager struct {
	config      Config
	isLocalFile bool
	clock       clock.Clock
	engine      *transit.Engine
	TopoDB      *topodb.Client

	topology atomic.Pointer[transit.Topology]
	feed     atomic.Pointer[transit.Feed]

	staticUpdateMutex sync.Mutex // serializes ForceUpdate

	staticMutex    sync.RWMutex // guards the fields below
	isHealthy      bool
	lastUpdated    time.Time
	topologySource string

	realTimeMutex   sync.RWMutex // guards the per-feed maps
	feedLines       map[string]map[string]transit.LineArrivals
	feedLastSuccess map[string]time.Time
	feedLastError   map[string]string

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// InitGTFSManager builds the engine, opens the topology store, loads the
// initial topology and starts the background refreshers. It fails only when
// no topology is available from either the source or the store.
func InitGTFSManager(ctx context.Context, config Config) (*Manager, error) {
	logger := slog.Default().With(slog.String("component", "gtfs_manager"))

	manager, err := newManager(config)
	if err != nil {
		return nil, err
	}

	dbPath := config.TopologyDBPath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	manager.TopoDB, err = topodb.NewClient(topodb.Config{DBPath: dbPath, Env: config.Env, Verbose: config.Verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to open topology store: %w", err)
	}

	if err := manager.loadInitialTopology(ctx, logger); err != nil {
		logging.SafeCloseWithLogging(manager.TopoDB, logger, "topology_store")
		return nil, err
	}

	feeds := config.enabledFeeds()
	for _, feed := range feeds {
		manager.wg.Add(1)
		go manager.updateFeedRealtimePeriodically(feed)
	}

	manager.wg.Add(1)
	go manager.updateTopologyPeriodically()

	logging.LogOperation(logger, "gtfs_manager_started",
		slog.String("topology_source", config.TopologyURL),
		slog.Int("realtime_feeds", len(feeds)))
	return manager, nil
}

func newManager(config Config) (*Manager, error) {
	engine, err := transit.NewEngine(config.Shuffle)
	if err != nil {
		return nil, fmt.Errorf("invalid shuffle configuration: %w", err)
	}
	c := config.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	m := &Manager{
		config:          config,
		isLocalFile:     isLocalSource(config.TopologyURL),
		clock:           c,
		engine:          engine,
		feedLines:       make(map[string]map[string]transit.LineArrivals),
		feedLastSuccess: make(map[string]time.Time),
		feedLastError:   make(map[string]string),
		shutdownChan:    make(chan struct{}),
	}
	m.feed.Store(transit.EmptyFeed())
	return m, nil
}

func isLocalSource(source string) bool {
	return !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")
}

// loadInitialTopology prefers the configured source and falls back to the
// last snapshot saved in the store.
func (manager *Manager) loadInitialTopology(ctx context.Context, logger *slog.Logger) error {
	err := manager.ForceUpdate(ctx)
	if err == nil {
		return nil
	}
	logging.LogError(logger, "topology source unavailable, trying stored snapshot", err,
		slog.String("source", manager.config.TopologyURL))

	topo, dbErr := manager.TopoDB.LoadTopology(ctx)
	if dbErr != nil {
		manager.observeTopology(sourceDatabase, metrics.ResultError, nil)
		return fmt.Errorf("no topology available: source: %w; store: %w", err, dbErr)
	}

	manager.setTopology(topo, sourceDatabase)
	manager.observeTopology(sourceDatabase, metrics.ResultStale, topo)
	logging.LogOperation(logger, "topology_restored_from_store",
		slog.String("version", topo.Version()),
		slog.Int("stations", len(topo.Stations())))
	return nil
}

// Topology returns the published topology, or nil before the first load.
func (manager *Manager) Topology() *transit.Topology {
	return manager.topology.Load()
}

// Feed returns the published arrival feed. It is never nil.
func (manager *Manager) Feed() *transit.Feed {
	return manager.feed.Load()
}

func (manager *Manager) Engine() *transit.Engine {
	return manager.engine
}

func (manager *Manager) Clock() clock.Clock {
	return manager.clock
}

// Snapshot returns a consistent topology/feed pair for one request.
func (manager *Manager) Snapshot() (*transit.Topology, *transit.Feed, error) {
	topo := manager.Topology()
	if topo == nil {
		return nil, nil, ErrNotReady
	}
	return topo, manager.Feed(), nil
}

// IsReady reports whether a topology has been published.
func (manager *Manager) IsReady() bool {
	return manager.Topology() != nil
}

func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

func (manager *Manager) MarkHealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = true
}

func (manager *Manager) MarkUnhealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = false
}

// TopologyInfo describes the published topology.
type TopologyInfo struct {
	Version     string
	Source      string
	LastUpdated time.Time
}

func (manager *Manager) TopologyInfo() TopologyInfo {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	info := TopologyInfo{Source: manager.topologySource, LastUpdated: manager.lastUpdated}
	if topo := manager.Topology(); topo != nil {
		info.Version = topo.Version()
	}
	return info
}

// FeedStatus is the health of one realtime feed.
type FeedStatus struct {
	ID          string
	LastSuccess time.Time
	LastError   string
	Lines       []string
}

// FeedStatuses reports every enabled feed, in configuration order.
func (manager *Manager) FeedStatuses() []FeedStatus {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()

	feeds := manager.config.enabledFeeds()
	out := make([]FeedStatus, 0, len(feeds))
	for _, f := range feeds {
		status := FeedStatus{
			ID:          f.ID,
			LastSuccess: manager.feedLastSuccess[f.ID],
			LastError:   manager.feedLastError[f.ID],
			Lines:       []string{},
		}
		for lineID := range manager.feedLines[f.ID] {
			status.Lines = append(status.Lines, lineID)
		}
		sort.Strings(status.Lines)
		out = append(out, status)
	}
	return out
}

// Shutdown stops the background refreshers, waits for them and closes the
// topology store. It is safe to call more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
		if manager.TopoDB != nil {
			logging.SafeCloseWithLogging(manager.TopoDB,
				slog.Default().With(slog.String("component", "gtfs_manager")),
				"topology_store")
		}
	})
}
