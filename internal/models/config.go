package models

// BuildProperties identifies the running binary.
type BuildProperties struct {
	Version    string `json:"version"`
	GoVersion  string `json:"goVersion"`
	CommitID   string `json:"commitId"`
	CommitTime string `json:"commitTime,omitempty"`
	Dirty      bool   `json:"dirty"`
}

// CommitIDAbbrev is the first seven characters of the commit id.
func (p BuildProperties) CommitIDAbbrev() string {
	if len(p.CommitID) < 7 {
		return p.CommitID
	}
	return p.CommitID[:7]
}

type ShuffleModel struct {
	LineID     string   `json:"lineId"`
	StationIDs []string `json:"stationIds"`
}

type ConfigModel struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Build           BuildProperties `json:"build"`
	Environment     string          `json:"environment"`
	Shuffle         ShuffleModel    `json:"shuffle"`
	ArrivalLimit    int             `json:"arrivalLimit"`
	TopologyVersion string          `json:"topologyVersion"`
}
