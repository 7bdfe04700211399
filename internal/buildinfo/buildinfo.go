// Package buildinfo identifies the running binary. The variables are set at
// link time, for example:
//
//	go build -ldflags "-X weekendest.com/stations/internal/buildinfo.Version=v1.2.0"
//
// Anything left empty is filled from the module build info that the Go
// toolchain embeds.
package buildinfo

import (
	"runtime"
	"runtime/debug"

	"weekendest.com/stations/internal/models"
)

var (
	Version    = ""
	CommitHash = ""
	CommitTime = ""
	Dirty      = ""
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Properties merges the link-time values with the embedded VCS settings.
func Properties() models.BuildProperties {
	props := models.BuildProperties{
		Version:    Version,
		GoVersion:  runtime.Version(),
		CommitID:   CommitHash,
		CommitTime: CommitTime,
		Dirty:      Dirty == "true",
	}

	info, ok := readBuildInfo()
	if !ok {
		return withDefaults(props)
	}
	if props.Version == "" && info.Main.Version != "(devel)" {
		props.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if props.CommitID == "" {
				props.CommitID = setting.Value
			}
		case "vcs.time":
			if props.CommitTime == "" {
				props.CommitTime = setting.Value
			}
		case "vcs.modified":
			if Dirty == "" {
				props.Dirty = setting.Value == "true"
			}
		}
	}
	return withDefaults(props)
}

func withDefaults(props models.BuildProperties) models.BuildProperties {
	if props.Version == "" {
		props.Version = "dev"
	}
	if props.CommitID == "" {
		props.CommitID = "unknown"
	}
	return props
}
