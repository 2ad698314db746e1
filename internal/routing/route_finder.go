package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"navigator.metromap.org/internal/network"
)

var (
	// ErrNoRoute means the two stations are not connected.
	ErrNoRoute = errors.New("no route found")
	// ErrUnknownStation means an endpoint is nil or not part of the searched graph.
	ErrUnknownStation = errors.New("unknown station")
)

// Route is a minimum-time path, endpoints included.
type Route struct {
	Stations  []*network.Station
	TotalTime int
}

func (r Route) Start() *network.Station {
	if len(r.Stations) == 0 {
		return nil
	}
	return r.Stations[0]
}

func (r Route) End() *network.Station {
	if len(r.Stations) == 0 {
		return nil
	}
	return r.Stations[len(r.Stations)-1]
}

// Remaining returns the stations from index from to the end.
func (r Route) Remaining(from int) []*network.Station {
	if from < 0 {
		from = 0
	}
	if from >= len(r.Stations) {
		return nil
	}
	return r.Stations[from:]
}

// FindRoute runs Dijkstra over the neighbor edges of all. Neighbor lists
// already include transfer edges. Between equal-time paths any one may be
// returned.
func FindRoute(start, end *network.Station, all []*network.Station) (Route, error) {
	if start == nil || end == nil {
		return Route{}, ErrUnknownStation
	}

	distance := make(map[*network.Station]int, len(all))
	for _, st := range all {
		distance[st] = math.MaxInt
	}
	if _, ok := distance[start]; !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownStation, start.ID)
	}
	if _, ok := distance[end]; !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownStation, end.ID)
	}

	if start == end {
		return Route{Stations: []*network.Station{start}}, nil
	}

	previous := make(map[*network.Station]*network.Station, len(all))
	distance[start] = 0

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{station: start, distance: 0})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*queueItem)
		if current.distance > distance[current.station] {
			continue
		}
		if current.station == end {
			break
		}

		for _, n := range current.station.Neighbors {
			best, known := distance[n.Station]
			if !known || n.Time <= 0 {
				continue
			}
			candidate := current.distance + n.Time
			if candidate < best {
				distance[n.Station] = candidate
				previous[n.Station] = current.station
				heap.Push(pq, &queueItem{station: n.Station, distance: candidate})
			}
		}
	}

	if distance[end] == math.MaxInt {
		return Route{}, fmt.Errorf("%w: %s to %s", ErrNoRoute, start.ID, end.ID)
	}

	path := []*network.Station{end}
	for at := end; at != start; {
		prev, ok := previous[at]
		if !ok {
			return Route{}, fmt.Errorf("%w: broken path at %s", ErrNoRoute, at.ID)
		}
		path = append(path, prev)
		at = prev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return Route{Stations: path, TotalTime: distance[end]}, nil
}
