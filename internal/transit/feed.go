package transit

import (
	"sort"
	"time"
)

// ArrivalEstimate is one predicted arrival of a train at a directed stop.
type ArrivalEstimate struct {
	StopID        string `json:"stop_id"`
	EstimatedTime int64  `json:"estimated_time"` // epoch seconds
}

// LineArrivals holds a line's estimates per direction. Each direction holds
// one group of estimates per trip.
type LineArrivals struct {
	ArrivalTimes map[Direction][][]ArrivalEstimate `json:"arrival_times"`
}

// Feed is an immutable live-arrival snapshot keyed by line id. A line may be
// missing entirely, or be missing a direction; both are routine.
type Feed struct {
	lines       map[string]LineArrivals
	generatedAt time.Time
}

// EmptyFeed returns a feed with no real-time data.
func EmptyFeed() *Feed {
	return &Feed{lines: map[string]LineArrivals{}}
}

// NewFeed validates and copies the given line arrivals. Unknown direction
// keys and malformed stop ids are contract violations.
func NewFeed(lines map[string]LineArrivals, generatedAt time.Time) (*Feed, error) {
	f := &Feed{
		lines:       make(map[string]LineArrivals, len(lines)),
		generatedAt: generatedAt,
	}
	for lineID, la := range lines {
		byDir := make(map[Direction][][]ArrivalEstimate, len(la.ArrivalTimes))
		for d, groups := range la.ArrivalTimes {
			if err := d.validate(); err != nil {
				return nil, err
			}
			copied := make([][]ArrivalEstimate, 0, len(groups))
			for _, group := range groups {
				for _, e := range group {
					if _, err := ParseStopToken(e.StopID); err != nil {
						return nil, err
					}
				}
				copied = append(copied, append([]ArrivalEstimate(nil), group...))
			}
			byDir[d] = copied
		}
		f.lines[lineID] = LineArrivals{ArrivalTimes: byDir}
	}
	return f, nil
}

// Line returns the arrivals recorded for a line.
func (f *Feed) Line(lineID string) (LineArrivals, bool) {
	if f == nil {
		return LineArrivals{}, false
	}
	la, ok := f.lines[lineID]
	return la, ok
}

// LineIDs lists the lines present in the feed, sorted.
func (f *Feed) LineIDs() []string {
	if f == nil {
		return []string{}
	}
	out := make([]string, 0, len(f.lines))
	for id := range f.lines {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (f *Feed) GeneratedAt() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.generatedAt
}

// Flatten returns every estimate recorded for a direction, across trips.
func (la LineArrivals) Flatten(d Direction) []ArrivalEstimate {
	groups, ok := la.ArrivalTimes[d]
	if !ok {
		return nil
	}
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]ArrivalEstimate, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// FeedBuilder accumulates per-trip estimates while a poll is decoded.
// It is not safe for concurrent use.
type FeedBuilder struct {
	lines map[string]LineArrivals
}

func NewFeedBuilder() *FeedBuilder {
	return &FeedBuilder{lines: make(map[string]LineArrivals)}
}

// AddTrip records one trip's estimates for a line. Estimates are grouped by
// the direction suffix of their stop id, so a trip contributes at most one
// group per direction. Malformed stop ids are rejected before anything is
// recorded.
func (b *FeedBuilder) AddTrip(lineID string, estimates []ArrivalEstimate) error {
	byDir := make(map[Direction][]ArrivalEstimate, 1)
	for _, e := range estimates {
		token, err := ParseStopToken(e.StopID)
		if err != nil {
			return err
		}
		byDir[token.Direction] = append(byDir[token.Direction], e)
	}
	if len(byDir) == 0 {
		return nil
	}

	la, ok := b.lines[lineID]
	if !ok {
		la = LineArrivals{ArrivalTimes: make(map[Direction][][]ArrivalEstimate, 2)}
	}
	for _, d := range Directions {
		if group, ok := byDir[d]; ok {
			la.ArrivalTimes[d] = append(la.ArrivalTimes[d], group)
		}
	}
	b.lines[lineID] = la
	return nil
}

// Merge copies every line from another builder's output into this builder.
// Lines present in both are concatenated.
func (b *FeedBuilder) Merge(lines map[string]LineArrivals) {
	for lineID, other := range lines {
		la, ok := b.lines[lineID]
		if !ok {
			la = LineArrivals{ArrivalTimes: make(map[Direction][][]ArrivalEstimate, 2)}
		}
		for d, groups := range other.ArrivalTimes {
			la.ArrivalTimes[d] = append(la.ArrivalTimes[d], groups...)
		}
		b.lines[lineID] = la
	}
}

// Lines exposes the accumulated arrivals without copying.
func (b *FeedBuilder) Lines() map[string]LineArrivals {
	return b.lines
}

// Build produces an immutable Feed. The builder may be reused afterwards
// without affecting the returned Feed.
func (b *FeedBuilder) Build(generatedAt time.Time) *Feed {
	f := &Feed{
		lines:       make(map[string]LineArrivals, len(b.lines)),
		generatedAt: generatedAt,
	}
	for lineID, la := range b.lines {
		byDir := make(map[Direction][][]ArrivalEstimate, len(la.ArrivalTimes))
		for d, groups := range la.ArrivalTimes {
			copied := make([][]ArrivalEstimate, 0, len(groups))
			for _, g := range groups {
				copied = append(copied, append([]ArrivalEstimate(nil), g...))
			}
			byDir[d] = copied
		}
		f.lines[lineID] = LineArrivals{ArrivalTimes: byDir}
	}
	return f
}
