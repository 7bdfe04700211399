package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"weekendest.com/stations/internal/gtfs"
)

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// ParseFeeds reads "id=url" pairs separated by commas into enabled feed
// configs.
func ParseFeeds(feedsFlag string) ([]gtfs.RTFeedConfig, error) {
	if strings.TrimSpace(feedsFlag) == "" {
		return nil, nil
	}

	var feeds []gtfs.RTFeedConfig
	seen := make(map[string]bool)
	for _, pair := range strings.Split(feedsFlag, ",") {
		id, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		id, url = strings.TrimSpace(id), strings.TrimSpace(url)
		if !ok || id == "" || url == "" {
			return nil, fmt.Errorf("feed %q must be written as id=url", pair)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate feed id %q", id)
		}
		seen[id] = true
		feeds = append(feeds, gtfs.RTFeedConfig{ID: id, TripUpdatesURL: url, Enabled: true})
	}
	return feeds, nil
}
