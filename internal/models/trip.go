package models

import (
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/trip"
)

type Transfer struct {
	Diagram      string          `json:"diagram,omitempty"`
	Instructions string          `json:"instructions"`
	Type         string          `json:"type"`
	Minutes      int             `json:"minutes"`
	FromID       string          `json:"fromId"`
	ToID         string          `json:"toId"`
	ToLineID     string          `json:"toLineId,omitempty"`
	Way          []network.Point `json:"way,omitempty"`
	WayPoints    string          `json:"wayPoints,omitempty"`
}

// Trip is the live trip view.
type Trip struct {
	State               string    `json:"state"`
	TripID              string    `json:"tripId,omitempty"`
	Index               int       `json:"index"`
	CurrentStationID    string    `json:"currentStationId,omitempty"`
	RemainingStationIDs []string  `json:"remainingStationIds"`
	RemainingTime       int       `json:"remainingTime"`
	StationsLeft        int       `json:"stationsLeft"`
	NextChangeID        string    `json:"nextChangeId,omitempty"`
	NextLineID          string    `json:"nextLineId,omitempty"`
	TowardID            string    `json:"towardId,omitempty"`
	Transfer            *Transfer `json:"transfer,omitempty"`
}

func NewTrip(s trip.Snapshot) Trip {
	t := Trip{
		State:               s.State.String(),
		TripID:              s.TripID,
		Index:               s.Index,
		RemainingStationIDs: stationIDs(s.Remaining),
		RemainingTime:       s.RemainingTime,
		StationsLeft:        s.StationsLeft,
	}
	if s.Current != nil {
		t.CurrentStationID = s.Current.ID
	}
	if s.NextChange != nil {
		t.NextChangeID = s.NextChange.ID
	}
	if s.NextLine != nil {
		t.NextLineID = s.NextLine.ID
	}
	if s.Toward != nil {
		t.TowardID = s.Toward.ID
	}

	if v := s.Transfer; v != nil {
		t.Transfer = &Transfer{
			Diagram:      v.Diagram,
			Instructions: v.Instructions,
			Type:         string(v.Type),
			Minutes:      v.Minutes,
			Way:          v.Way,
			WayPoints:    EncodeWay(v.Way),
		}
		if v.From != nil {
			t.Transfer.FromID = v.From.ID
		}
		if v.To != nil {
			t.Transfer.ToID = v.To.ID
		}
		if v.ToLine != nil {
			t.Transfer.ToLineID = v.ToLine.ID
		}
	}
	return t
}
