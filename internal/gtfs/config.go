package gtfs

import (
	"time"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/metrics"
	"weekendest.com/stations/internal/transit"
)

const (
	defaultFeedRefreshInterval     = 30 * time.Second
	defaultTopologyRefreshInterval = time.Hour
)

// Configuration for a single GTFS-RT trip updates feed. The MTA splits its
// lines across several feeds; each covers a disjoint set of lines.
type RTFeedConfig struct {
	ID              string
	TripUpdatesURL  string
	Headers         map[string]string
	RefreshInterval int // seconds, default 30
	Enabled         bool
}

func (f RTFeedConfig) refreshInterval() time.Duration {
	if f.RefreshInterval <= 0 {
		return defaultFeedRefreshInterval
	}
	return time.Duration(f.RefreshInterval) * time.Second
}

// Config holds the snapshot manager configuration.
type Config struct {
	// TopologyURL is an http(s) URL or a local path to the topology JSON.
	TopologyURL             string
	TopologyHeaders         map[string]string
	TopologyDBPath          string
	TopologyRefreshInterval time.Duration
	RTFeeds                 []RTFeedConfig
	Shuffle                 transit.ShuffleConfig
	Env                     appconf.Environment
	Verbose                 bool

	// Optional collaborators. A nil Clock means the system clock; nil
	// Metrics disables instrumentation.
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// enabledFeeds returns only the enabled feeds that have a URL configured.
func (config Config) enabledFeeds() []RTFeedConfig {
	var feeds []RTFeedConfig
	for _, feed := range config.RTFeeds {
		if feed.Enabled && feed.TripUpdatesURL != "" {
			feeds = append(feeds, feed)
		}
	}
	return feeds
}

func (config Config) topologyRefreshInterval() time.Duration {
	if config.TopologyRefreshInterval <= 0 {
		return defaultTopologyRefreshInterval
	}
	return config.TopologyRefreshInterval
}

// ConfigFromData builds a manager Config from a loaded config file. A file
// without a shuffle section gets the default M train inversion.
func ConfigFromData(data appconf.GtfsConfigData) Config {
	cfg := Config{
		TopologyURL:             data.TopologyURL,
		TopologyDBPath:          data.TopologyDBPath,
		TopologyRefreshInterval: time.Duration(data.TopologyRefreshSeconds) * time.Second,
		Shuffle:                 transit.DefaultShuffleConfig(),
		Env:                     data.Env,
		Verbose:                 data.Verbose,
	}
	if data.Shuffle != nil {
		cfg.Shuffle = transit.ShuffleConfig{
			LineID:     data.Shuffle.LineID,
			StationIDs: data.Shuffle.StationIDs,
		}
	}
	for _, feed := range data.RealtimeFeeds {
		cfg.RTFeeds = append(cfg.RTFeeds, RTFeedConfig{
			ID:              feed.ID,
			TripUpdatesURL:  feed.TripUpdatesURL,
			Headers:         feed.Headers,
			RefreshInterval: feed.RefreshIntervalSeconds,
			Enabled:         feed.IsEnabled(),
		})
	}
	return cfg
}
