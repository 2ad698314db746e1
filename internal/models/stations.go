package models

import "navigator.metromap.org/internal/network"

type Station struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
	Color  string   `json:"color"`
	Zone   int      `json:"zone,omitempty"`
	LineID string   `json:"lineId,omitempty"`
}

// NewStation converts st, attributing it to its line under owners when known.
func NewStation(st *network.Station, owners network.LineResolver) Station {
	s := Station{
		ID:    st.ID,
		Name:  st.Name,
		X:     st.X,
		Y:     st.Y,
		Lat:   st.Lat,
		Lon:   st.Lon,
		Color: st.Color,
		Zone:  st.Zone,
	}
	if owners != nil {
		if line := owners.LineOf(st); line != nil {
			s.LineID = line.ID
		}
	}
	return s
}

func NewStations(stations []*network.Station, owners network.LineResolver) []Station {
	out := make([]Station, 0, len(stations))
	for _, st := range stations {
		out = append(out, NewStation(st, owners))
	}
	return out
}

type LineReference struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Type       string   `json:"type"`
	Layer      string   `json:"layer"`
	IsCircle   bool     `json:"isCircle"`
	Tariff     string   `json:"tariff,omitempty"`
	StationIDs []string `json:"stationIds"`
}

func NewLineReference(line *network.Line) LineReference {
	ref := LineReference{
		ID:         line.ID,
		Name:       line.Name,
		Color:      line.Color,
		Type:       string(line.Type),
		Layer:      line.Layer.String(),
		IsCircle:   line.IsCircle,
		StationIDs: stationIDs(line.Stations),
	}
	if line.Tariff != nil {
		ref.Tariff = line.Tariff.Kind.String()
	}
	return ref
}

func stationIDs(stations []*network.Station) []string {
	ids := make([]string, 0, len(stations))
	for _, st := range stations {
		ids = append(ids, st.ID)
	}
	return ids
}
