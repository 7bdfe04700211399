package models

// TopologyStatus describes the published topology snapshot.
type TopologyStatus struct {
	Version     string `json:"version"`
	Source      string `json:"source"`
	LastUpdated int64  `json:"lastUpdated"`
	Stations    int    `json:"stations"`
	Lines       int    `json:"lines"`
}

// FeedStatus is the health of one GTFS-realtime feed. Times are epoch
// milliseconds, zero when the feed has never succeeded.
type FeedStatus struct {
	ID          string   `json:"id"`
	LastSuccess int64    `json:"lastSuccess"`
	LastError   string   `json:"lastError,omitempty"`
	Lines       []string `json:"lines"`
	Stale       bool     `json:"stale"`
}

type StatusModel struct {
	Healthy         bool           `json:"healthy"`
	Topology        TopologyStatus `json:"topology"`
	Feeds           []FeedStatus   `json:"feeds"`
	FeedLines       []string       `json:"feedLines"`
	FeedGeneratedAt int64          `json:"feedGeneratedAt"`
}
