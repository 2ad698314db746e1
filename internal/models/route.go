package models

import (
	"github.com/twpayne/go-polyline"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/routing"
	"navigator.metromap.org/internal/tariff"
)

type Segment struct {
	LineID     string   `json:"lineId,omitempty"`
	Tariff     string   `json:"tariff,omitempty"`
	Zone       int      `json:"zone,omitempty"`
	StationIDs []string `json:"stationIds"`
}

// Route is a planned route. Points is the encoded polyline of the stations
// with known coordinates and is empty when fewer than two have them.
type Route struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Layer      string    `json:"layer"`
	TotalTime  int       `json:"totalTime"`
	StationIDs []string  `json:"stationIds"`
	Segments   []Segment `json:"segments"`
	Points     string    `json:"points"`
	Length     int       `json:"length"`
}

func NewRoute(route routing.Route, segments []tariff.Segment, layer network.Layer) Route {
	r := Route{
		Layer:      layer.String(),
		TotalTime:  route.TotalTime,
		StationIDs: stationIDs(route.Stations),
		Segments:   make([]Segment, 0, len(segments)),
		Points:     EncodeStations(route.Stations),
	}
	r.Length = len(r.Points)
	if len(route.Stations) > 0 {
		r.From = route.Start().ID
		r.To = route.End().ID
	}

	for _, seg := range segments {
		s := Segment{
			Zone:       seg.Zone,
			StationIDs: stationIDs(seg.Stations),
		}
		if seg.Line != nil {
			s.LineID = seg.Line.ID
			if seg.Line.Tariff != nil {
				s.Tariff = seg.Line.Tariff.Kind.String()
			}
		}
		r.Segments = append(r.Segments, s)
	}
	return r
}

// EncodeStations encodes the geographic positions of stations as a polyline,
// skipping stations without coordinates.
func EncodeStations(stations []*network.Station) string {
	var coords [][]float64
	for _, st := range stations {
		if st.HasLocation() {
			coords = append(coords, []float64{*st.Lat, *st.Lon})
		}
	}
	if len(coords) < 2 {
		return ""
	}
	return string(polyline.EncodeCoords(coords))
}

// EncodeWay encodes a schematic walking path. Points are written as (y, x) to
// keep the latitude-first order of geographic polylines.
func EncodeWay(way []network.Point) string {
	if len(way) < 2 {
		return ""
	}
	coords := make([][]float64, 0, len(way))
	for _, p := range way {
		coords = append(coords, []float64{p.Y, p.X})
	}
	return string(polyline.EncodeCoords(coords))
}

type Cost struct {
	Total     int64  `json:"total"`
	Formatted string `json:"formatted"`
	Resolved  int    `json:"resolved"`
	Pending   int    `json:"pending"`
	Final     bool   `json:"final"`
}

func NewCost(u tariff.CostUpdate) Cost {
	return Cost{
		Total:     int64(u.Total),
		Formatted: u.Total.String(),
		Resolved:  u.Resolved,
		Pending:   u.Pending,
		Final:     u.Final,
	}
}
