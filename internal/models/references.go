package models

import "navigator.metromap.org/internal/network"

// ReferencesModel carries the stations and lines an entry refers to by ID.
type ReferencesModel struct {
	Lines    []LineReference `json:"lines"`
	Stations []Station       `json:"stations"`
}

// NewEmptyReferences creates a new empty References model with initialized empty slices
func NewEmptyReferences() ReferencesModel {
	return ReferencesModel{
		Lines:    []LineReference{},
		Stations: []Station{},
	}
}

// NewReferences collects each station once, in order, together with the
// lines owning them under owners.
func NewReferences(stations []*network.Station, owners network.LineResolver) ReferencesModel {
	refs := NewEmptyReferences()
	seenStations := make(map[string]bool)
	seenLines := make(map[string]bool)

	for _, st := range stations {
		if st == nil || seenStations[st.ID] {
			continue
		}
		seenStations[st.ID] = true
		refs.Stations = append(refs.Stations, NewStation(st, owners))

		if owners == nil {
			continue
		}
		if line := owners.LineOf(st); line != nil && !seenLines[line.ID] {
			seenLines[line.ID] = true
			refs.Lines = append(refs.Lines, NewLineReference(line))
		}
	}
	return refs
}
