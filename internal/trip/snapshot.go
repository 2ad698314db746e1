package trip

import "navigator.metromap.org/internal/network"

// TransferView is the walking guidance shown while a transfer is in progress.
type TransferView struct {
	Diagram      string
	Way          []network.Point
	Instructions string
	Type         network.TransferType
	Minutes      int
	From, To     *network.Station
	ToLine       *network.Line
}

// Snapshot is a consistent copy of the tracker's state for presentation.
type Snapshot struct {
	State         State
	TripID        string
	Index         int
	Route         []*network.Station
	Current       *network.Station
	Remaining     []*network.Station
	RemainingTime int
	// StationsLeft counts the stops after the current one.
	StationsLeft int
	NextChange   *network.Station
	NextLine     *network.Line
	// Toward is the terminus of the current line in the direction of travel.
	// It is nil on circle lines and when the next hop leaves the line.
	Toward   *network.Station
	Transfer *TransferView
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		State:  t.state,
		TripID: t.tripID,
		Index:  t.index,
		Route:  append([]*network.Station(nil), t.route...),
	}
	if len(t.route) == 0 {
		return s
	}

	s.Current = t.route[t.index]
	s.Remaining = append([]*network.Station(nil), t.route[t.index:]...)
	s.RemainingTime, _ = network.PathTime(s.Remaining)
	s.StationsLeft = len(s.Remaining) - 1

	if t.next > 0 && t.next < len(t.route) {
		s.NextChange = t.route[t.next]
		s.NextLine = t.lineAt(t.next)
	}
	if t.index+1 < len(t.route) {
		s.Toward = toward(t.lineAt(t.index), s.Current, t.route[t.index+1])
	}

	if a := t.active; a != nil {
		s.Transfer = &TransferView{
			Diagram:      a.diagram,
			Way:          append([]network.Point(nil), a.walk.Way...),
			Instructions: a.instructions,
			Type:         a.transfer.Type,
			Minutes:      a.transfer.Time,
			From:         a.from,
			To:           a.to,
			ToLine:       a.toLine,
		}
	}
	return s
}

func toward(line *network.Line, from, to *network.Station) *network.Station {
	if line == nil || line.IsCircle || len(line.Stations) < 2 {
		return nil
	}
	switch to {
	case line.Next(from):
		return line.Stations[len(line.Stations)-1]
	case line.Prev(from):
		return line.Stations[0]
	}
	return nil
}
