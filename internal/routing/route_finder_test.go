package routing

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"navigator.metromap.org/internal/network"
)

type edge struct {
	from, to string
	minutes  int
}

func buildGraph(t *testing.T, ids []string, edges []edge) *network.Network {
	t.Helper()
	b := network.NewBuilder(nil)
	for _, id := range ids {
		b.AddStation(network.Station{ID: id, Name: id})
	}
	for _, e := range edges {
		b.AddEdge(e.from, e.to, e.minutes)
		b.AddEdge(e.to, e.from, e.minutes)
	}
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func station(t *testing.T, net *network.Network, id string) *network.Station {
	t.Helper()
	st, ok := net.Station(id)
	require.True(t, ok, "station %s", id)
	return st
}

func TestFindRoute(t *testing.T) {
	// a-b-c-d is the slow direct line, a-e-d a faster detour through a transfer.
	net := buildGraph(t,
		[]string{"a", "b", "c", "d", "e", "island"},
		[]edge{
			{"a", "b", 3}, {"b", "c", 3}, {"c", "d", 3},
			{"a", "e", 2}, {"e", "d", 4},
		})

	t.Run("picks the minimum time path", func(t *testing.T) {
		route, err := FindRoute(station(t, net, "a"), station(t, net, "d"), net.Stations())
		require.NoError(t, err)
		assert.Equal(t, 6, route.TotalTime)
		require.Len(t, route.Stations, 3)
		assert.Equal(t, "a", route.Start().ID)
		assert.Equal(t, "e", route.Stations[1].ID)
		assert.Equal(t, "d", route.End().ID)

		summed, ok := network.PathTime(route.Stations)
		assert.True(t, ok)
		assert.Equal(t, route.TotalTime, summed)
	})

	t.Run("start equals end", func(t *testing.T) {
		a := station(t, net, "a")
		route, err := FindRoute(a, a, net.Stations())
		require.NoError(t, err)
		assert.Equal(t, []*network.Station{a}, route.Stations)
		assert.Zero(t, route.TotalTime)
	})

	t.Run("disconnected stations report no route", func(t *testing.T) {
		route, err := FindRoute(station(t, net, "a"), station(t, net, "island"), net.Stations())
		assert.ErrorIs(t, err, ErrNoRoute)
		assert.Empty(t, route.Stations)
	})

	t.Run("unknown endpoints", func(t *testing.T) {
		_, err := FindRoute(nil, station(t, net, "a"), net.Stations())
		assert.ErrorIs(t, err, ErrUnknownStation)

		stranger := &network.Station{ID: "stranger"}
		_, err = FindRoute(station(t, net, "a"), stranger, net.Stations())
		assert.ErrorIs(t, err, ErrUnknownStation)
	})

	t.Run("stations outside the searched set are not traversed", func(t *testing.T) {
		subset := []*network.Station{
			station(t, net, "a"), station(t, net, "b"), station(t, net, "c"), station(t, net, "d"),
		}
		route, err := FindRoute(subset[0], subset[3], subset)
		require.NoError(t, err)
		assert.Equal(t, 9, route.TotalTime)
	})
}

func TestRouteRemaining(t *testing.T) {
	net := buildGraph(t, []string{"a", "b", "c"}, []edge{{"a", "b", 1}, {"b", "c", 1}})
	route, err := FindRoute(station(t, net, "a"), station(t, net, "c"), net.Stations())
	require.NoError(t, err)

	assert.Len(t, route.Remaining(1), 2)
	assert.Len(t, route.Remaining(-5), 3)
	assert.Nil(t, route.Remaining(3))
	assert.Nil(t, Route{}.Start())
}

// bruteForceMinimum enumerates every simple path, which is fine for tiny graphs.
func bruteForceMinimum(from, to *network.Station) int {
	best := math.MaxInt
	visited := map[*network.Station]bool{from: true}
	var walk func(at *network.Station, cost int)
	walk = func(at *network.Station, cost int) {
		if cost >= best {
			return
		}
		if at == to {
			best = cost
			return
		}
		for _, n := range at.Neighbors {
			if visited[n.Station] {
				continue
			}
			visited[n.Station] = true
			walk(n.Station, cost+n.Time)
			visited[n.Station] = false
		}
	}
	walk(from, 0)
	return best
}

func TestFindRouteMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("graph_%d", round), func(t *testing.T) {
			size := 4 + rng.Intn(4)
			ids := make([]string, size)
			for i := range ids {
				ids[i] = fmt.Sprintf("s%d", i)
			}
			var edges []edge
			for i := 0; i < size; i++ {
				for j := i + 1; j < size; j++ {
					if rng.Float64() < 0.45 {
						edges = append(edges, edge{ids[i], ids[j], 1 + rng.Intn(9)})
					}
				}
			}
			net := buildGraph(t, ids, edges)
			all := net.Stations()

			for _, from := range all {
				for _, to := range all {
					expected := bruteForceMinimum(from, to)
					route, err := FindRoute(from, to, all)
					if expected == math.MaxInt {
						assert.ErrorIs(t, err, ErrNoRoute, "%s -> %s", from.ID, to.ID)
						continue
					}
					require.NoError(t, err, "%s -> %s", from.ID, to.ID)
					assert.Equal(t, expected, route.TotalTime, "%s -> %s", from.ID, to.ID)
					assert.Same(t, from, route.Start())
					assert.Same(t, to, route.End())

					summed, ok := network.PathTime(route.Stations)
					assert.True(t, ok)
					assert.Equal(t, route.TotalTime, summed)
				}
			}
		})
	}
}
