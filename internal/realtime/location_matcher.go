package realtime

import (
	"math"
	"time"

	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/trip"
	"navigator.metromap.org/internal/utils"
)

const DefaultMatchRadius = 300.0

// StationSource lists the stations of the loaded network.
type StationSource interface {
	Stations() []*network.Station
}

// LocationMatcher maps GPS fixes to the nearest station with known
// coordinates.
type LocationMatcher struct {
	stations StationSource
	radius   float64
}

// NewLocationMatcher matches within radius meters; a non-positive radius uses
// DefaultMatchRadius.
func NewLocationMatcher(stations StationSource, radius float64) *LocationMatcher {
	if radius <= 0 {
		radius = DefaultMatchRadius
	}
	return &LocationMatcher{stations: stations, radius: radius}
}

// Nearest returns the closest station within radius meters of the fix, and
// its distance. A non-positive radius uses the matcher's default.
func (m *LocationMatcher) Nearest(lat, lon, radius float64) (*network.Station, float64, bool) {
	if radius <= 0 {
		radius = m.radius
	}

	var best *network.Station
	bestDist := math.Inf(1)
	for _, st := range m.stations.Stations() {
		if !st.HasLocation() {
			continue
		}
		d := utils.Haversine(lat, lon, *st.Lat, *st.Lon)
		if d <= radius && d < bestDist {
			best, bestDist = st, d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}

// Signal converts a fix into a station signal.
func (m *LocationMatcher) Signal(lat, lon float64, at time.Time) (trip.Signal, bool) {
	st, _, ok := m.Nearest(lat, lon, 0)
	if !ok {
		return trip.Signal{}, false
	}
	return trip.Signal{StationID: st.ID, At: at, Source: "gps"}, true
}
