package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/clock"
	"weekendest.com/stations/internal/gtfs"
	"weekendest.com/stations/internal/transit"
)

const replayTimeEnvVar = "WEEKENDEST_REPLAY_TIME"

func main() {
	// Values already in the environment win over .env.
	_ = godotenv.Load()

	var (
		configFile     string
		apiKeysFlag    string
		exemptKeysFlag string
		envFlag        string
		replayFile     string
		feedsFlag      string
	)
	var cfg appconf.Config
	var gtfsCfg gtfs.Config

	flag.StringVar(&configFile, "f", "", "Path to a JSON config file; other flags are ignored when set")
	flag.IntVar(&cfg.Port, "port", envInt("PORT", 4000), "API server port")
	flag.StringVar(&envFlag, "env", envString("WEEKENDEST_ENV", "development"), "Environment (development|test|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", os.Getenv("WEEKENDEST_API_KEYS"), "Comma separated API keys; empty disables key checks")
	flag.StringVar(&exemptKeysFlag, "exempt-api-keys", "", "Comma separated API keys exempt from rate limiting")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 100, "Requests per second per API key")
	flag.IntVar(&cfg.CacheSeconds, "cache-seconds", 15, "max-age for real-time responses")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&gtfsCfg.TopologyURL, "topology-url", envString("TOPOLOGY_URL", "./testdata/topology.json"), "URL or path of the topology JSON")
	flag.StringVar(&gtfsCfg.TopologyDBPath, "data-path", envString("TOPOLOGY_DB_PATH", "./topology.db"), "Path of the SQLite topology store")
	flag.StringVar(&feedsFlag, "feeds", os.Getenv("WEEKENDEST_FEEDS"), "Comma separated id=url GTFS-RT trip update feeds")
	flag.StringVar(&replayFile, "replay-time-file", "", "Serve as of the timestamp in this file (or "+replayTimeEnvVar+")")
	flag.Parse()

	if configFile != "" {
		jsonConfig, err := appconf.LoadFromFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
		cfg = jsonConfig.ToAppConfig()
		gtfsCfg = gtfs.ConfigFromData(jsonConfig.ToGtfsConfigData())
	} else {
		cfg.Env = appconf.EnvFlagToEnvironment(envFlag)
		cfg.ApiKeys = ParseAPIKeys(apiKeysFlag)
		cfg.ExemptApiKeys = ParseAPIKeys(exemptKeysFlag)

		feeds, err := ParseFeeds(feedsFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -feeds: %v\n", err)
			os.Exit(1)
		}
		gtfsCfg.RTFeeds = feeds
		gtfsCfg.Shuffle = transit.DefaultShuffleConfig()
		gtfsCfg.Env = cfg.Env
		gtfsCfg.Verbose = cfg.Verbose
	}

	if replayFile != "" || os.Getenv(replayTimeEnvVar) != "" {
		gtfsCfg.Clock = clock.NewReplayClock(replayTimeEnvVar, replayFile, clock.NewYork())
	}

	coreApp, err := BuildApplication(cfg, gtfsCfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)
	if err := Run(srv, coreApp, api); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
