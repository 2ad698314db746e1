package tariff

import "navigator.metromap.org/internal/network"

// Segment is a maximal run of consecutive route stations owned by one line.
type Segment struct {
	Stations []*network.Station
	Line     *network.Line
	Zone     int
}

func (s Segment) First() *network.Station { return s.Stations[0] }

func (s Segment) Last() *network.Station { return s.Stations[len(s.Stations)-1] }

// Split partitions route by owning line. Transfers are not marked in a route,
// so a segment ends wherever two consecutive stations resolve to different
// lines. A segment's zone is the highest zone among its stations.
func Split(route []*network.Station, owners network.LineResolver) []Segment {
	if len(route) == 0 {
		return nil
	}

	var segments []Segment
	current := Segment{Line: owners.LineOf(route[0])}
	for _, st := range route {
		line := owners.LineOf(st)
		if line != current.Line {
			segments = append(segments, current)
			current = Segment{Line: line}
		}
		current.Stations = append(current.Stations, st)
		if st.Zone > current.Zone {
			current.Zone = st.Zone
		}
	}
	return append(segments, current)
}
