package app

import (
	"log/slog"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/gtfs"
	"weekendest.com/stations/internal/metrics"
)

// Application holds the dependencies shared by the HTTP handlers, helpers
// and middleware.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}
