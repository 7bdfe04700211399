// Package clock supplies the instant that arrival minutes are measured
// against. Handlers never call time.Now directly; they ask a Clock, so tests
// and feed replays can pin the time.
package clock

import (
	"log/slog"
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// UnixSeconds returns the clock's time as fractional epoch seconds, the unit
// arrival estimates are compared in.
func UnixSeconds(c Clock) float64 {
	return float64(c.Now().UnixNano()) / float64(time.Second)
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d. Negative durations move it backwards.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

const newYorkZone = "America/New_York"

var (
	newYorkOnce sync.Once
	newYorkLoc  *time.Location
)

// NewYork returns the subway's local time zone. Hosts without zoneinfo get
// UTC and a warning.
func NewYork() *time.Location {
	newYorkOnce.Do(func() {
		loc, err := time.LoadLocation(newYorkZone)
		if err != nil {
			slog.Warn("time zone unavailable, using UTC",
				slog.String("component", "clock"),
				slog.String("zone", newYorkZone),
				slog.String("error", err.Error()))
			loc = time.UTC
		}
		newYorkLoc = loc
	})
	return newYorkLoc
}

// Clock sources reported by Describe.
const (
	SourceSystem = "system"
	SourceMock   = "mock"
	SourceEnv    = "replay-env"
	SourceFile   = "replay-file"
)

// Describe names where c currently takes its time from. A replay clock with
// no usable timestamp reports SourceSystem, matching what Now returns.
func Describe(c Clock) string {
	switch v := c.(type) {
	case *MockClock:
		return SourceMock
	case *ReplayClock:
		return v.Source()
	default:
		return SourceSystem
	}
}
