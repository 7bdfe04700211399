package gtfs

import (
	"log/slog"
	"time"

	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/transit"
)

// NewMockManager builds a manager around a fixed topology, with no store and
// no background refreshers. The Mock methods below drive its snapshots.
func NewMockManager(topo *transit.Topology, c clock.Clock) (*Manager, error) {
	m, err := newManager(Config{Shuffle: transit.DefaultShuffleConfig(), Clock: c})
	if err != nil {
		return nil, err
	}
	if topo != nil {
		m.setTopology(topo, "mock")
	}
	return m, nil
}

func (m *Manager) MockSetTopology(topo *transit.Topology) {
	m.setTopology(topo, "mock")
}

// MockSetFeedLines replaces one feed's arrivals as if it had just been polled.
func (m *Manager) MockSetFeedLines(feedID string, lines map[string]transit.LineArrivals) {
	m.realTimeMutex.Lock()
	defer m.realTimeMutex.Unlock()

	now := m.clock.Now()
	m.feedLines[feedID] = lines
	m.feedLastSuccess[feedID] = now
	delete(m.feedLastError, feedID)
	m.rebuildMergedRealtimeLocked(now, slog.Default())
}

// MockAddTripUpdate appends one trip's estimates to a feed. Estimates are
// given as stop id and offset from the manager clock.
func (m *Manager) MockAddTripUpdate(feedID, lineID string, stops map[string]time.Duration) error {
	m.realTimeMutex.Lock()
	defer m.realTimeMutex.Unlock()

	now := m.clock.Now()
	estimates := make([]transit.ArrivalEstimate, 0, len(stops))
	for stopID, offset := range stops {
		estimates = append(estimates, transit.ArrivalEstimate{
			StopID:        stopID,
			EstimatedTime: now.Add(offset).Unix(),
		})
	}

	builder := transit.NewFeedBuilder()
	builder.Merge(m.feedLines[feedID])
	if err := builder.AddTrip(lineID, estimates); err != nil {
		return err
	}
	m.feedLines[feedID] = builder.Lines()
	m.feedLastSuccess[feedID] = now
	m.rebuildMergedRealtimeLocked(now, slog.Default())
	return nil
}

// MockResetRealTimeData clears every feed's arrivals.
func (m *Manager) MockResetRealTimeData() {
	m.realTimeMutex.Lock()
	defer m.realTimeMutex.Unlock()

	m.feedLines = make(map[string]map[string]transit.LineArrivals)
	m.feedLastSuccess = make(map[string]time.Time)
	m.feedLastError = make(map[string]string)
	m.feed.Store(transit.EmptyFeed())
}
