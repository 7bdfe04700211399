package models

import (
	"fmt"
	"net/url"

	"weekendest.com/stations/internal/transit"
)

// ShareBaseURL is the public page a station links to.
const ShareBaseURL = "https://www.theweekendest.com/stations/"

// TrainBullet is the minimum needed to draw a line's bullet.
type TrainBullet struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
}

// NewTrainBullet falls back to the line id as its name when the line is not
// in the topology.
func NewTrainBullet(id string, train transit.Train, known bool) TrainBullet {
	if !known {
		return TrainBullet{ID: id, Name: id}
	}
	return TrainBullet{ID: id, Name: train.Name, Color: train.Color, TextColor: train.TextColor}
}

// StationSummary is one row of a station list.
type StationSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	DisplayName   string        `json:"displayName"`
	SecondaryName string        `json:"secondaryName,omitempty"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	Lines         []TrainBullet `json:"lines"`
	NoService     bool          `json:"noService"`
}

func NewStationSummary(s transit.Station, lines []TrainBullet) StationSummary {
	return StationSummary{
		ID:            s.ID,
		Name:          s.Name,
		DisplayName:   transit.DisplayName(s.Name),
		SecondaryName: s.SecondaryName,
		Latitude:      s.Latitude,
		Longitude:     s.Longitude,
		Lines:         lines,
		NoService:     len(lines) == 0,
	}
}

// NearbyStation is a station with its distance from the query point.
type NearbyStation struct {
	StationSummary
	DistanceMeters float64 `json:"distanceMeters"`
}

// TrainArrivals is one line serving a station in one direction.
type TrainArrivals struct {
	TrainBullet
	Status             string `json:"status"`
	StatusColor        string `json:"statusColor,omitempty"`
	EffectiveDirection string `json:"effectiveDirection"`
	Arrivals           []int  `json:"arrivals"`
	ArrivalsText       string `json:"arrivalsText"`
}

// DirectionDetails is one side of the platform.
type DirectionDetails struct {
	Direction        string          `json:"direction"`
	Destinations     string          `json:"destinations"`
	DestinationNames []string        `json:"destinationNames"`
	Trains           []TrainArrivals `json:"trains"`
}

// Transfer is a station reachable on foot from the one being shown.
type Transfer struct {
	StationSummary
}

type ShareInfo struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

func NewShareInfo(s transit.Station) ShareInfo {
	name := transit.DisplayName(s.Name)
	return ShareInfo{
		Title: fmt.Sprintf("the weekendest - %s", name),
		Text:  fmt.Sprintf("Real-time arrival times and routing information at %s station on the Weekendest", name),
		URL:   ShareBaseURL + url.PathEscape(s.ID),
	}
}

// StationDetails is everything shown on a station page.
type StationDetails struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	DisplayName     string             `json:"displayName"`
	SecondaryName   string             `json:"secondaryName,omitempty"`
	Latitude        float64            `json:"latitude"`
	Longitude       float64            `json:"longitude"`
	Directions      []DirectionDetails `json:"directions"`
	Transfers       []Transfer         `json:"transfers"`
	Share           ShareInfo          `json:"share"`
	TopologyVersion string             `json:"topologyVersion"`
	FeedGeneratedAt int64              `json:"feedGeneratedAt"`
}

// ArrivalsEntry is the nearest arrivals of one line at one station.
type ArrivalsEntry struct {
	StationID          string `json:"stationId"`
	RouteID            string `json:"routeId"`
	Direction          string `json:"direction"`
	EffectiveDirection string `json:"effectiveDirection"`
	Limit              int    `json:"limit"`
	Arrivals           []int  `json:"arrivals"`
	ArrivalsText       string `json:"arrivalsText"`
}

type DestinationsEntry struct {
	StationID        string   `json:"stationId"`
	Direction        string   `json:"direction"`
	Destinations     string   `json:"destinations"`
	DestinationNames []string `json:"destinationNames"`
	TopologyVersion  string   `json:"topologyVersion"`
}

// RoutingPath is one stopping pattern of a line, ready to draw.
type RoutingPath struct {
	Direction    string   `json:"direction"`
	Stops        []string `json:"stops"`
	Terminal     string   `json:"terminal"`
	TerminalName string   `json:"terminalName,omitempty"`
	Polyline     string   `json:"polyline"`
	// Stops without coordinates are left out of the polyline.
	MissingStops []string `json:"missingStops,omitempty"`
}

type RoutingsEntry struct {
	Train    TrainBullet   `json:"train"`
	Statuses TrainStatuses `json:"statuses"`
	Paths    []RoutingPath `json:"paths"`
}

type TrainStatuses struct {
	South      string `json:"south"`
	SouthColor string `json:"southColor,omitempty"`
	North      string `json:"north"`
	NorthColor string `json:"northColor,omitempty"`
}

func NewTrainStatuses(t transit.Train) TrainStatuses {
	south, north := t.Status(transit.South), t.Status(transit.North)
	return TrainStatuses{
		South:      south,
		SouthColor: transit.StatusColor(south),
		North:      north,
		NorthColor: transit.StatusColor(north),
	}
}
