package gtfs

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	p "github.com/OneBusAway/go-gtfs/proto"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/transit"
)

var testNow = time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)

// emptyFeedBytes is FeedMessage { header { gtfs_realtime_version: "2.0" } }.
var emptyFeedBytes = []byte{0x0a, 0x05, 0x0a, 0x03, 0x32, 0x2e, 0x30}

func testTopologyPath() string {
	return filepath.Join("..", "..", "testdata", "topology.json")
}

func loadTestTopology(t *testing.T) *transit.Topology {
	t.Helper()
	data, err := os.ReadFile(testTopologyPath())
	require.NoError(t, err)
	topo, err := ParseTopology(data)
	require.NoError(t, err)
	return topo
}

func newTestManager(t *testing.T) (*Manager, *clock.MockClock) {
	t.Helper()
	c := clock.NewMockClock(testNow)
	m, err := NewMockManager(loadTestTopology(t), c)
	require.NoError(t, err)
	return m, c
}

type testStop struct {
	stopID    string
	arrival   time.Duration // offset from testNow; zero means unset
	departure time.Duration
}

type testTrip struct {
	tripID  string
	routeID string
	stops   []testStop
}

// buildTripUpdatesFeed encodes trips as a GTFS-RT FeedMessage.
func buildTripUpdatesFeed(t *testing.T, trips ...testTrip) []byte {
	t.Helper()

	entities := make([]*p.FeedEntity, 0, len(trips))
	for i, trip := range trips {
		updates := make([]*p.TripUpdate_StopTimeUpdate, 0, len(trip.stops))
		for seq, stop := range trip.stops {
			stu := &p.TripUpdate_StopTimeUpdate{
				StopSequence: proto.Uint32(uint32(seq + 1)),
			}
			if stop.stopID != "" {
				stu.StopId = proto.String(stop.stopID)
			}
			if stop.arrival != 0 {
				stu.Arrival = &p.TripUpdate_StopTimeEvent{Time: proto.Int64(testNow.Add(stop.arrival).Unix())}
			}
			if stop.departure != 0 {
				stu.Departure = &p.TripUpdate_StopTimeEvent{Time: proto.Int64(testNow.Add(stop.departure).Unix())}
			}
			updates = append(updates, stu)
		}

		entities = append(entities, &p.FeedEntity{
			Id: proto.String(fmt.Sprintf("entity-%d", i)),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:  proto.String(trip.tripID),
					RouteId: proto.String(trip.routeID),
				},
				StopTimeUpdate: updates,
			},
		})
	}

	feed := &p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(testNow.Unix())),
		},
		Entity: entities,
	}
	b, err := proto.Marshal(feed)
	require.NoError(t, err)
	return b
}

// feedServer serves a swappable protobuf body. A non-200 status makes every
// request fail.
type feedServer struct {
	*httptest.Server

	mu       sync.Mutex
	body     []byte
	status   int
	requests []*http.Request
}

func newFeedServer(t *testing.T, body []byte) *feedServer {
	t.Helper()
	fs := &feedServer{body: body, status: http.StatusOK}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.requests = append(fs.requests, r)
		if fs.status != http.StatusOK {
			w.WriteHeader(fs.status)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(fs.body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) set(body []byte, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.body = body
	fs.status = status
}

func (fs *feedServer) lastRequest() *http.Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) == 0 {
		return nil
	}
	return fs.requests[len(fs.requests)-1]
}
