package restapi

import (
	"time"

	"weekendest.com/stations/internal/gtfs"
)

// StaleDetector flags realtime feeds that have not been fetched successfully
// for longer than threshold.
type StaleDetector struct {
	threshold time.Duration
}

func NewStaleDetector() *StaleDetector {
	return &StaleDetector{
		threshold: 2 * time.Minute,
	}
}

func (d *StaleDetector) WithThreshold(threshold time.Duration) *StaleDetector {
	d.threshold = threshold
	return d
}

// Check reports whether the feed is stale. A feed that never succeeded is.
func (d *StaleDetector) Check(feed gtfs.FeedStatus, currentTime time.Time) bool {
	return d.Age(feed, currentTime) > d.threshold
}

func (d *StaleDetector) Age(feed gtfs.FeedStatus, currentTime time.Time) time.Duration {
	if feed.LastSuccess.IsZero() {
		return d.threshold + 1
	}

	return currentTime.Sub(feed.LastSuccess)
}
