package gtfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/metrics"
	"weekendest.com/stations/internal/transit"
)

const maxTopologySize = 50 * 1024 * 1024

const (
	sourceRemote   = "remote"
	sourceFile     = "file"
	sourceDatabase = "database"
)

var topologyHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
	Transport: &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	},
}

// topologyDocument is the wire format of the topology source: stations keyed
// by id, a list of trains and routings keyed by line id.
type topologyDocument struct {
	Stations map[string]transit.Station  `json:"stations"`
	Trains   []transit.Train             `json:"trains"`
	Routings map[string]transit.Routings `json:"routings"`
}

func rawTopologyData(ctx context.Context, source string, isLocalFile bool, headers map[string]string) ([]byte, error) {
	if isLocalFile {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local topology file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating topology request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := topologyHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading topology: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "topology_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download topology: received HTTP status %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxTopologySize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading topology: %w", err)
	}
	if int64(len(b)) > maxTopologySize {
		return nil, fmt.Errorf("topology response exceeds size limit of %d bytes", maxTopologySize)
	}
	return b, nil
}

// ParseTopology decodes and validates a topology document.
func ParseTopology(data []byte) (*transit.Topology, error) {
	var doc topologyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing topology JSON: %w", err)
	}
	if len(doc.Stations) == 0 {
		return nil, fmt.Errorf("topology has no stations")
	}

	stations := make([]transit.Station, 0, len(doc.Stations))
	for id, s := range doc.Stations {
		if s.ID != "" && s.ID != id {
			return nil, fmt.Errorf("station keyed %q declares id %q", id, s.ID)
		}
		s.ID = id
		stations = append(stations, s)
	}

	topo, err := transit.NewTopology(stations, doc.Trains, doc.Routings)
	if err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	return topo, nil
}

func (manager *Manager) loadTopology(ctx context.Context) (*transit.Topology, error) {
	b, err := rawTopologyData(ctx, manager.config.TopologyURL, manager.isLocalFile, manager.config.TopologyHeaders)
	if err != nil {
		return nil, err
	}
	return ParseTopology(b)
}

func (manager *Manager) sourceLabel() string {
	if manager.isLocalFile {
		return sourceFile
	}
	return sourceRemote
}

// ForceUpdate reloads the topology from its source and hot-swaps it.
//
// The new snapshot is validated before anything changes, then saved to the
// store and published with one pointer swap. Requests already holding the old
// snapshot finish against it. On any failure the current snapshot stays.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	logger := slog.Default().With(slog.String("component", "topology_updater"))
	source := manager.sourceLabel()

	topo, err := manager.loadTopology(ctx)
	if err != nil {
		manager.observeTopology(source, metrics.ResultError, nil)
		logging.LogError(logger, "Error updating topology", err,
			slog.String("source", manager.config.TopologyURL))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if current := manager.Topology(); current != nil && current.Version() == topo.Version() {
		manager.touchTopology(source)
		manager.observeTopology(source, metrics.ResultSuccess, topo)
		logging.LogOperation(logger, "topology_unchanged_skipping_swap",
			slog.String("version", topo.Version()))
		return nil
	}

	if manager.TopoDB != nil {
		if err := manager.TopoDB.SaveTopology(ctx, topo, manager.config.TopologyURL, manager.clock.Now()); err != nil {
			logging.LogError(logger, "Failed to persist topology, serving it anyway", err)
		}
	}

	manager.setTopology(topo, source)
	manager.observeTopology(source, metrics.ResultSuccess, topo)

	logging.LogOperation(logger, "topology_updated_hot_swap",
		slog.String("source", manager.config.TopologyURL),
		slog.String("version", topo.Version()),
		slog.Int("stations", len(topo.Stations())),
		slog.Int("lines", len(topo.LineIDs())))
	return nil
}

func (manager *Manager) setTopology(topo *transit.Topology, source string) {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	manager.topology.Store(topo)
	manager.topologySource = source
	manager.lastUpdated = manager.clock.Now()
	manager.isHealthy = true
}

func (manager *Manager) touchTopology(source string) {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	manager.topologySource = source
	manager.lastUpdated = manager.clock.Now()
	manager.isHealthy = true
}

func (manager *Manager) observeTopology(source, result string, topo *transit.Topology) {
	if manager.config.Metrics == nil {
		return
	}
	var stations, lines int
	if topo != nil {
		stations, lines = len(topo.Stations()), len(topo.LineIDs())
	}
	manager.config.Metrics.ObserveTopology(source, result, stations, lines)
}

// updateTopologyPeriodically refreshes a remote topology on a fixed interval.
// Local files are read once.
func (manager *Manager) updateTopologyPeriodically() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "topology_refresher"))

	if manager.isLocalFile {
		logging.LogOperation(logger, "topology_source_is_local_file_skipping_periodic_updates",
			slog.String("source", manager.config.TopologyURL))
		return
	}

	ticker := time.NewTicker(manager.config.topologyRefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()
			if err != nil {
				// ForceUpdate logged it; the previous snapshot keeps serving.
				continue
			}
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_topology_updates")
			return
		}
	}
}
