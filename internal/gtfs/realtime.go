package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/transit"
)

const (
	maxRealtimeBodySize = 25 * 1024 * 1024

	// A feed that has not refreshed successfully within this window stops
	// contributing arrivals to the merged snapshot.
	feedRetention = 15 * time.Minute

	feedFetchTimeout = 15 * time.Second
)

// realtimeHTTPClient is a dedicated HTTP client for GTFS-RT feed fetching.
// The transport is cloned from http.DefaultTransport to keep its proxy, dialer
// and HTTP/2 defaults.
var realtimeHTTPClient = newRealtimeHTTPClient()

func newRealtimeHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Keep this <= feedFetchTimeout so the client bounds the request even
		// without a caller deadline.
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

func loadRealtimeData(ctx context.Context, source string, headers map[string]string) (*gtfs.Realtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Add(key, value)
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GTFS-RT request: %w", err)
	}

	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_realtime_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtfs-rt fetch failed: %s returned %s", source, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRealtimeBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > maxRealtimeBodySize {
		return nil, fmt.Errorf("GTFS-RT response exceeds size limit of %d bytes", maxRealtimeBodySize)
	}

	return gtfs.ParseRealtime(body, &gtfs.ParseRealtimeOptions{})
}

// decodeTripUpdates turns GTFS-RT trips into per-line arrivals. Each stop time
// update becomes one estimate, using the arrival time and falling back to the
// departure time. Updates without a stop id, without a time, or with a stop id
// that is not a directed stop token are dropped and counted.
func decodeTripUpdates(trips []gtfs.Trip) (lines map[string]transit.LineArrivals, estimates, dropped int) {
	builder := transit.NewFeedBuilder()

	for _, trip := range trips {
		lineID := trip.ID.RouteID
		if lineID == "" {
			dropped += len(trip.StopTimeUpdates)
			continue
		}

		tripEstimates := make([]transit.ArrivalEstimate, 0, len(trip.StopTimeUpdates))
		for _, stu := range trip.StopTimeUpdates {
			at := stopTimeUpdateTime(stu)
			if stu.StopID == nil || at == nil {
				dropped++
				continue
			}
			if _, err := transit.ParseStopToken(*stu.StopID); err != nil {
				dropped++
				continue
			}
			tripEstimates = append(tripEstimates, transit.ArrivalEstimate{
				StopID:        *stu.StopID,
				EstimatedTime: at.Unix(),
			})
		}

		if err := builder.AddTrip(lineID, tripEstimates); err != nil {
			// Unreachable: every stop id was parsed above.
			dropped += len(tripEstimates)
			continue
		}
		estimates += len(tripEstimates)
	}

	return builder.Lines(), estimates, dropped
}

func stopTimeUpdateTime(stu gtfs.StopTimeUpdate) *time.Time {
	if stu.Arrival != nil && stu.Arrival.Time != nil {
		return stu.Arrival.Time
	}
	if stu.Departure != nil && stu.Departure.Time != nil {
		return stu.Departure.Time
	}
	return nil
}

// updateFeedRealtime polls one feed and republishes the merged snapshot. A
// failed poll leaves the feed's previous arrivals in place until they age
// out of the retention window.
func (manager *Manager) updateFeedRealtime(ctx context.Context, feed RTFeedConfig) error {
	logger := logging.FromContext(ctx).With(
		slog.String("component", "gtfs_realtime"),
		slog.String("feed_id", feed.ID))

	start := time.Now()
	rt, err := loadRealtimeData(ctx, feed.TripUpdatesURL, feed.Headers)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	var lines map[string]transit.LineArrivals
	var estimates, dropped int
	if err == nil {
		lines, estimates, dropped = decodeTripUpdates(rt.Trips)
	}

	now := manager.clock.Now()

	manager.realTimeMutex.Lock()
	if err != nil {
		manager.feedLastError[feed.ID] = err.Error()
	} else {
		manager.feedLines[feed.ID] = lines
		manager.feedLastSuccess[feed.ID] = now
		delete(manager.feedLastError, feed.ID)
	}
	manager.rebuildMergedRealtimeLocked(now, logger)
	manager.realTimeMutex.Unlock()

	if manager.config.Metrics != nil {
		manager.config.Metrics.ObserveFeedFetch(feed.ID, err, time.Since(start), estimates, dropped, now)
	}

	if err != nil {
		logging.LogError(logger, "Error loading GTFS-RT trip updates", err,
			slog.String("url", feed.TripUpdatesURL))
		return err
	}

	attrs := []any{
		slog.Int("lines", len(lines)),
		slog.Int("estimates", estimates),
	}
	if dropped > 0 {
		attrs = append(attrs, slog.Int("dropped", dropped))
	}
	logger.Debug("realtime feed updated", attrs...)
	return nil
}

// rebuildMergedRealtimeLocked merges every feed's arrivals into a new Feed and
// publishes it. Feeds past the retention window are evicted first.
// Caller must hold realTimeMutex for writing.
func (manager *Manager) rebuildMergedRealtimeLocked(now time.Time, logger *slog.Logger) {
	feedIDs := make([]string, 0, len(manager.feedLines))
	for id := range manager.feedLines {
		feedIDs = append(feedIDs, id)
	}
	sort.Strings(feedIDs)

	builder := transit.NewFeedBuilder()
	for _, id := range feedIDs {
		if last, ok := manager.feedLastSuccess[id]; ok && now.Sub(last) > feedRetention {
			delete(manager.feedLines, id)
			logging.LogOperation(logger, "evicting_stale_realtime_feed",
				slog.String("evicted_feed_id", id),
				slog.Time("last_success", last))
			continue
		}
		builder.Merge(manager.feedLines[id])
	}

	manager.feed.Store(builder.Build(now))
}

func (manager *Manager) updateFeedRealtimePeriodically(feed RTFeedConfig) {
	defer manager.wg.Done()

	logger := slog.Default().With(
		slog.String("component", "gtfs_realtime_updater"),
		slog.String("feed_id", feed.ID))

	poll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), feedFetchTimeout)
		defer cancel()
		ctx = logging.WithLogger(ctx, logger)
		_ = manager.updateFeedRealtime(ctx, feed)
	}

	poll()

	ticker := time.NewTicker(feed.refreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			poll()
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}
