package restapi

import (
	"net/http"
	"time"

	"weekendest.com/stations/internal/models"
)

// epochMillis maps the zero time to 0.
func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// statusHandler reports the topology snapshot and the health of every
// realtime feed.
func (api *RestAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	now := api.Clock.Now()
	manager := api.GtfsManager
	detector := NewStaleDetector()

	info := manager.TopologyInfo()
	status := models.StatusModel{
		Healthy: manager.IsHealthy(),
		Topology: models.TopologyStatus{
			Version:     info.Version,
			Source:      info.Source,
			LastUpdated: epochMillis(info.LastUpdated),
		},
		Feeds:           []models.FeedStatus{},
		FeedLines:       manager.Feed().LineIDs(),
		FeedGeneratedAt: epochMillis(manager.Feed().GeneratedAt()),
	}
	if topo := manager.Topology(); topo != nil {
		status.Topology.Stations = len(topo.Stations())
		status.Topology.Lines = len(topo.LineIDs())
	}

	for _, feed := range manager.FeedStatuses() {
		status.Feeds = append(status.Feeds, models.FeedStatus{
			ID:          feed.ID,
			LastSuccess: epochMillis(feed.LastSuccess),
			LastError:   feed.LastError,
			Lines:       feed.Lines,
			Stale:       detector.Check(feed, now),
		})
	}

	api.sendResponse(w, r, models.NewEntryResponse(status, api.Clock))
}
