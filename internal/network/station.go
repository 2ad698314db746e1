package network

// Point is a coordinate on the schematic map plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Neighbor is a directed half of an undirected graph edge. Time is in minutes.
type Neighbor struct {
	Station *Station
	Time    int
}

// Station is a stop on any network layer. Stations are shared by pointer once
// a Network has been built and are never mutated afterwards.
type Station struct {
	ID        string
	Name      string
	X, Y      float64
	Lat, Lon  *float64
	Color     string
	ESP       string
	Zone      int
	Neighbors []Neighbor
}

// HasLocation reports whether geographic coordinates are known.
func (s *Station) HasLocation() bool {
	return s != nil && s.Lat != nil && s.Lon != nil
}

// TimeTo returns the cheapest direct edge time to other.
func (s *Station) TimeTo(other *Station) (int, bool) {
	best, found := 0, false
	for _, n := range s.Neighbors {
		if n.Station != other {
			continue
		}
		if !found || n.Time < best {
			best, found = n.Time, true
		}
	}
	return best, found
}

// PathTime sums the edge times along consecutive stations. The second result
// is false when two consecutive stations are not adjacent.
func PathTime(stations []*Station) (int, bool) {
	total := 0
	for i := 1; i < len(stations); i++ {
		t, ok := stations[i-1].TimeTo(stations[i])
		if !ok {
			return total, false
		}
		total += t
	}
	return total, true
}
