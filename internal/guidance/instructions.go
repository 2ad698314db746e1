package guidance

import (
	"fmt"
	"strings"

	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/utils"
)

var compassWords = map[string]string{
	"N":  "north",
	"NE": "north-east",
	"E":  "east",
	"SE": "south-east",
	"S":  "south",
	"SW": "south-west",
	"W":  "west",
	"NW": "north-west",
}

// Instructions renders the walking prose shown and spoken during a transfer.
func Instructions(t *network.Transfer, from, to *network.Station, toLine *network.Line) string {
	if t == nil || to == nil {
		return ""
	}

	target := to.Name
	if toLine != nil && toLine.Name != "" {
		target = fmt.Sprintf("%s (%s)", to.Name, toLine.Name)
	}

	var b strings.Builder
	switch t.Type {
	case network.TransferCrossPlatform:
		fmt.Fprintf(&b, "Cross the platform to %s", target)
	case network.TransferEscalator:
		fmt.Fprintf(&b, "Take the escalator to %s", target)
	case network.TransferWalking:
		fmt.Fprintf(&b, "Walk to %s", target)
		if dir := heading(from, to); dir != "" {
			fmt.Fprintf(&b, ", heading %s", dir)
		}
	case network.TransferGround:
		fmt.Fprintf(&b, "Exit to street level and walk to %s", target)
		if dir := heading(from, to); dir != "" {
			fmt.Fprintf(&b, ", heading %s", dir)
		}
	default:
		fmt.Fprintf(&b, "Change to %s", target)
	}

	if t.Time > 0 {
		fmt.Fprintf(&b, " (about %d min)", t.Time)
	}
	return b.String()
}

func heading(from, to *network.Station) string {
	if !from.HasLocation() || !to.HasLocation() {
		return ""
	}
	if *from.Lat == *to.Lat && *from.Lon == *to.Lon {
		return ""
	}
	return compassWords[utils.CompassDirection(*from.Lat, *from.Lon, *to.Lat, *to.Lon)]
}
