package transit

// ShuffleConfig names the one line whose south/north labels are inverted at
// a fixed set of stations, so that its feed and routings line up with a
// partner line sharing the same tracks.
type ShuffleConfig struct {
	LineID     string   `json:"line_id"`
	StationIDs []string `json:"station_ids"`
}

// DefaultShuffleConfig is the M train between Essex St and Myrtle Av, which
// runs reversed to match the J/Z.
func DefaultShuffleConfig() ShuffleConfig {
	return ShuffleConfig{
		LineID:     "M",
		StationIDs: []string{"M18", "M16", "M14", "M13", "M12", "M11"},
	}
}

// Validate rejects an empty line id, malformed station ids and a station set
// without a line. An entirely empty config disables the inversion.
func (c ShuffleConfig) Validate() error {
	if c.LineID == "" {
		if len(c.StationIDs) > 0 {
			return contractViolation("shuffle stations configured without a line")
		}
		return nil
	}
	for _, id := range c.StationIDs {
		if err := validateStationID(id); err != nil {
			return err
		}
	}
	return nil
}

type shuffle struct {
	lineID   string
	stations IDSet
}

func newShuffle(c ShuffleConfig) (shuffle, error) {
	if err := c.Validate(); err != nil {
		return shuffle{}, err
	}
	return shuffle{lineID: c.LineID, stations: NewIDSet(c.StationIDs...)}, nil
}

func (s shuffle) atStation(stationID string) bool {
	return s.lineID != "" && s.stations.Contains(stationID)
}

func (s shuffle) applies(lineID, stationID string) bool {
	return lineID == s.lineID && s.atStation(stationID)
}
