package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"weekendest.com/stations/internal/app"
	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/gtfs"
	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/metrics"
	"weekendest.com/stations/internal/restapi"
	"weekendest.com/stations/internal/webui"
)

const dbStatsInterval = 15 * time.Second

// ParseAPIKeys splits a comma separated list of keys.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	return keys
}

// BuildApplication wires the logger, metrics and snapshot manager together.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config) (*app.Application, error) {
	logger := logging.NewLogger(os.Stdout, cfg.IsProduction(), cfg.Verbose)
	slog.SetDefault(logger)

	m := gtfsCfg.Metrics
	if m == nil {
		m = metrics.NewWithLogger(logger)
		gtfsCfg.Metrics = m
	}
	c := gtfsCfg.Clock
	if c == nil {
		c = clock.RealClock{}
		gtfsCfg.Clock = c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gtfsManager, err := gtfs.InitGTFSManager(ctx, gtfsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}

	if gtfsManager.TopoDB != nil {
		m.StartDBStatsCollector(gtfsManager.TopoDB.DB, dbStatsInterval)
	}

	return &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsCfg,
		Logger:      logger,
		GtfsManager: gtfsManager,
		Clock:       c,
		Metrics:     m,
	}, nil
}

// CreateServer builds the HTTP server and its middleware chain. The returned
// RestAPI must be shut down by the caller.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)

	webUI := &webui.WebUI{Application: coreApp}
	webUI.SetWebUIRoutes(mux)

	var handler http.Handler = gzhttp.GzipHandler(mux)
	handler = restapi.MetricsHandler(coreApp.Metrics)(handler)
	handler = restapi.NewRequestLoggingMiddleware(coreApp.Logger)(handler)
	handler = restapi.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, api
}

// Run serves until SIGINT or SIGTERM, then drains connections and stops the
// background workers.
func Run(srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logging.LogOperation(logger, "server_shutting_down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server forced to shutdown", err)
	}

	api.Shutdown()
	coreApp.GtfsManager.Shutdown()
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}

	logging.LogOperation(logger, "server_exited")
	return runErr
}
