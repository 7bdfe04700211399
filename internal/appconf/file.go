package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// RTFeedData describes one GTFS-realtime trip updates feed in a config file.
type RTFeedData struct {
	ID                     string            `json:"id"`
	TripUpdatesURL         string            `json:"trip-updates-url"`
	Headers                map[string]string `json:"headers,omitempty"`
	RefreshIntervalSeconds int               `json:"refresh-interval-seconds,omitempty"`
	Enabled                *bool             `json:"enabled,omitempty"`
}

// IsEnabled treats a missing "enabled" key as true.
func (f RTFeedData) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// ShuffleData overrides the line whose direction labels are inverted at a
// set of stations.
type ShuffleData struct {
	LineID     string   `json:"line-id"`
	StationIDs []string `json:"station-ids"`
}

// JSONConfig is the on-disk configuration file, an alternative to flags.
type JSONConfig struct {
	Port                   int          `json:"port"`
	Env                    string       `json:"env"`
	ApiKeys                []string     `json:"api-keys"`
	ExemptApiKeys          []string     `json:"exempt-api-keys"`
	Verbose                bool         `json:"verbose"`
	RateLimit              int          `json:"rate-limit"`
	CacheSeconds           int          `json:"cache-seconds"`
	TopologyURL            string       `json:"topology-url"`
	DataPath               string       `json:"data-path"`
	TopologyRefreshSeconds int          `json:"topology-refresh-seconds"`
	RealtimeFeeds          []RTFeedData `json:"realtime-feeds"`
	Shuffle                *ShuffleData `json:"shuffle,omitempty"`
	environment            Environment
}

// GtfsConfigData is the subset of the file consumed by the snapshot manager.
// It is plain data so the gtfs package can build its own Config from it.
type GtfsConfigData struct {
	TopologyURL            string
	TopologyDBPath         string
	TopologyRefreshSeconds int
	RealtimeFeeds          []RTFeedData
	Shuffle                *ShuffleData
	Env                    Environment
	Verbose                bool
}

// LoadFromFile reads and validates a JSON config file. Missing optional
// fields receive the same defaults as the command-line flags.
func LoadFromFile(path string) (*JSONConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg JSONConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *JSONConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.RateLimit == 0 {
		c.RateLimit = 100
	}
	if c.CacheSeconds == 0 {
		c.CacheSeconds = 15
	}
	if c.DataPath == "" {
		c.DataPath = "./topology.db"
	}
	if c.TopologyRefreshSeconds == 0 {
		c.TopologyRefreshSeconds = 3600
	}
}

func (c *JSONConfig) validate() error {
	var errs []error

	env, err := parseEnvironment(c.Env)
	if err != nil {
		errs = append(errs, err)
	}
	c.environment = env

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must not be negative"))
	}
	if c.CacheSeconds < 0 {
		errs = append(errs, fmt.Errorf("cache-seconds must not be negative"))
	}
	if c.TopologyURL == "" {
		errs = append(errs, errors.New("topology-url is required"))
	} else if err := validateSource(c.TopologyURL); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.RealtimeFeeds))
	for i, feed := range c.RealtimeFeeds {
		if feed.ID == "" {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: id is required", i))
		} else if seen[feed.ID] {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: duplicate id %q", i, feed.ID))
		}
		seen[feed.ID] = true
		if feed.TripUpdatesURL == "" {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: trip-updates-url is required", i))
		} else if err := validateHTTPURL(feed.TripUpdatesURL); err != nil {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: %w", i, err))
		}
		if feed.RefreshIntervalSeconds < 0 {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: refresh-interval-seconds must not be negative", i))
		}
	}

	if c.Shuffle != nil && c.Shuffle.LineID == "" && len(c.Shuffle.StationIDs) > 0 {
		errs = append(errs, errors.New("shuffle: station-ids given without line-id"))
	}
	return errors.Join(errs...)
}

// validateSource accepts an http(s) URL or a local path without traversal.
func validateSource(source string) error {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return validateHTTPURL(source)
	}
	if strings.Contains(source, "..") {
		return fmt.Errorf("topology-url %q must not contain '..'", source)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: want an absolute http(s) URL", raw)
	}
	return nil
}

// ToAppConfig converts the file into the server configuration.
func (c *JSONConfig) ToAppConfig() Config {
	return Config{
		Port:          c.Port,
		Env:           c.environment,
		ApiKeys:       c.ApiKeys,
		ExemptApiKeys: c.ExemptApiKeys,
		Verbose:       c.Verbose,
		RateLimit:     c.RateLimit,
		CacheSeconds:  c.CacheSeconds,
	}
}

// ToGtfsConfigData extracts the snapshot manager settings.
func (c *JSONConfig) ToGtfsConfigData() GtfsConfigData {
	return GtfsConfigData{
		TopologyURL:            c.TopologyURL,
		TopologyDBPath:         c.DataPath,
		TopologyRefreshSeconds: c.TopologyRefreshSeconds,
		RealtimeFeeds:          c.RealtimeFeeds,
		Shuffle:                c.Shuffle,
		Env:                    c.environment,
		Verbose:                c.Verbose,
	}
}
