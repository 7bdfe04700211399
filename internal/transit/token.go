package transit

// StationIDLength is the fixed length of a station id.
const StationIDLength = 3

// StopToken is a directed stop: a station visited while travelling in Direction.
type StopToken struct {
	StationID string
	Direction Direction
}

// String renders the token in its wire form, e.g. "A05S".
func (t StopToken) String() string {
	return t.StationID + t.Direction.Suffix()
}

// ParseStopToken splits a directed stop token such as "L03N" into its station
// id and direction. Anything other than a 3-character id followed by "N" or
// "S" is a contract violation.
func ParseStopToken(s string) (StopToken, error) {
	if len(s) != StationIDLength+1 {
		return StopToken{}, contractViolation("malformed stop token %q: want %d characters", s, StationIDLength+1)
	}
	var dir Direction
	switch s[StationIDLength] {
	case 'S':
		dir = South
	case 'N':
		dir = North
	default:
		return StopToken{}, contractViolation("malformed stop token %q: unknown direction suffix", s)
	}
	return StopToken{StationID: s[:StationIDLength], Direction: dir}, nil
}

// FormatStopToken builds the wire token for a station and direction.
func FormatStopToken(stationID string, dir Direction) (string, error) {
	if err := validateStationID(stationID); err != nil {
		return "", err
	}
	if err := dir.validate(); err != nil {
		return "", err
	}
	return stationID + dir.Suffix(), nil
}

func validateStationID(id string) error {
	if len(id) != StationIDLength {
		return contractViolation("malformed station id %q: want %d characters", id, StationIDLength)
	}
	return nil
}
