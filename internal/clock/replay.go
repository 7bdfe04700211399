package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ReplayClock pins "now" to a timestamp read from an environment variable or
// a file, so a captured real-time feed can be served as if it were live.
// The source is re-read on every call; the environment variable wins over the
// file and the system clock is the fallback.
type ReplayClock struct {
	envVar   string
	filePath string
	location *time.Location
}

// NewReplayClock configures a replay clock. Timestamps without an offset are
// read in location; a nil location accepts RFC 3339 only.
func NewReplayClock(envVar, filePath string, location *time.Location) *ReplayClock {
	return &ReplayClock{
		envVar:   envVar,
		filePath: filePath,
		location: location,
	}
}

func (r *ReplayClock) Now() time.Time {
	if t, err := r.fromEnv(); err == nil {
		return t
	}
	if t, err := r.fromFile(); err == nil {
		return t
	}
	slog.Warn("replay time unavailable, using system time",
		slog.String("component", "clock"),
		slog.String("env_var", r.envVar),
		slog.String("file_path", r.filePath))
	return time.Now()
}

// Source reports which input Now would read from right now.
func (r *ReplayClock) Source() string {
	if _, err := r.fromEnv(); err == nil {
		return SourceEnv
	}
	if _, err := r.fromFile(); err == nil {
		return SourceFile
	}
	return SourceSystem
}

func (r *ReplayClock) fromEnv() (time.Time, error) {
	if r.envVar == "" {
		return time.Time{}, errors.New("no environment variable configured")
	}
	value := os.Getenv(r.envVar)
	if value == "" {
		return time.Time{}, fmt.Errorf("environment variable %s is empty", r.envVar)
	}
	return r.parse(value)
}

func (r *ReplayClock) fromFile() (time.Time, error) {
	if r.filePath == "" {
		return time.Time{}, errors.New("no file configured")
	}
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return time.Time{}, err
	}
	return r.parse(string(data))
}

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (r *ReplayClock) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if r.location == nil {
		return time.Time{}, errors.New("timestamp has no offset and no location is configured")
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, r.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: want RFC 3339, YYYY-MM-DD HH:MM:SS, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD", s)
}
