package transit

import (
	"strconv"
	"strings"
)

// DisplayName swaps the " - " separator used in station names for an en dash.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, " - ", "–")
}

// FormatArrivals renders minutes as "2 min, 5 min". No arrivals render as "".
func FormatArrivals(minutes []int) string {
	parts := make([]string, 0, len(minutes))
	for _, m := range minutes {
		parts = append(parts, strconv.Itoa(m)+" min")
	}
	return strings.Join(parts, ", ")
}

// StatusColor maps a line's direction status label to the color used to
// highlight it. Unknown labels have no color.
func StatusColor(status string) string {
	switch status {
	case "Good Service":
		return "green"
	case "Service Change":
		return "orange"
	case "Not Good":
		return "yellow"
	case "Delay":
		return "red"
	}
	return ""
}
