package network

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"navigator.metromap.org/internal/logging"
)

func testBuilder(buf *bytes.Buffer) *Builder {
	return NewBuilder(logging.NewStructuredLogger(buf, slog.LevelDebug))
}

func addLine(b *Builder, layer Layer, id string, tariff *Tariff, ids ...string) *Line {
	line := &Line{ID: id, Name: "Line " + id, Layer: layer, Tariff: tariff}
	for i, sid := range ids {
		line.Stations = append(line.Stations, b.AddStation(Station{ID: sid, Name: strings.ToUpper(sid)}))
		if i > 0 {
			b.AddEdge(ids[i-1], sid, 2)
			b.AddEdge(sid, ids[i-1], 2)
		}
	}
	b.AddLine(line)
	return line
}

func TestBuilderEdges(t *testing.T) {
	t.Run("mirrors one-way edges with a warning", func(t *testing.T) {
		var buf bytes.Buffer
		b := testBuilder(&buf)
		b.AddStation(Station{ID: "a"})
		b.AddStation(Station{ID: "b"})
		b.AddEdge("a", "b", 4)

		net, err := b.Build()
		require.NoError(t, err)

		a, _ := net.Station("a")
		bst, _ := net.Station("b")
		got, ok := net.EdgeTime(bst, a)
		assert.True(t, ok)
		assert.Equal(t, 4, got)
		assert.Contains(t, buf.String(), "mirroring one-way edge")
	})

	t.Run("drops non-positive and dangling edges", func(t *testing.T) {
		var buf bytes.Buffer
		b := testBuilder(&buf)
		b.AddStation(Station{ID: "a"})
		b.AddStation(Station{ID: "b"})
		b.AddEdge("a", "b", 0)
		b.AddEdge("a", "ghost", 3)

		net, err := b.Build()
		require.NoError(t, err)

		a, _ := net.Station("a")
		assert.Empty(t, a.Neighbors)
		assert.Contains(t, buf.String(), "non-positive")
		assert.Contains(t, buf.String(), "unknown station")
	})

	t.Run("keeps the smaller of conflicting times", func(t *testing.T) {
		var buf bytes.Buffer
		b := testBuilder(&buf)
		b.AddStation(Station{ID: "a"})
		b.AddStation(Station{ID: "b"})
		b.AddEdge("a", "b", 5)
		b.AddEdge("b", "a", 3)

		net, err := b.Build()
		require.NoError(t, err)

		a, _ := net.Station("a")
		bst, _ := net.Station("b")
		forward, _ := a.TimeTo(bst)
		backward, _ := bst.TimeTo(a)
		assert.Equal(t, 3, forward)
		assert.Equal(t, 3, backward)
		assert.Len(t, a.Neighbors, 1)
	})

	t.Run("empty builder fails", func(t *testing.T) {
		_, err := NewBuilder(nil).Build()
		assert.ErrorIs(t, err, ErrEmptyNetwork)
	})
}

func TestBuilderTransfers(t *testing.T) {
	var buf bytes.Buffer
	b := testBuilder(&buf)
	addLine(b, Metro, "1", nil, "a1", "a2")
	addLine(b, Metro, "2", nil, "b1", "b2")
	addLine(b, Metro, "3", nil, "c1", "c2")

	b.AddTransfer([]string{"a2", "b1", "c1"}, Transfer{
		Time: 3,
		Type: TransferWalking,
		Routes: []TransferRoute{
			{From: "a2", To: "b1"},
			{From: "", To: "b1"},
		},
	})
	b.AddTransfer([]string{"a1", "missing"}, Transfer{Time: 2})

	net, err := b.Build()
	require.NoError(t, err)

	require.Len(t, net.Transfers(), 1)
	transfer := net.Transfers()[0]
	assert.Len(t, transfer.Stations, 3)
	assert.Len(t, transfer.Routes, 1, "route without endpoints is dropped")

	a2, _ := net.Station("a2")
	b1, _ := net.Station("b1")
	c1, _ := net.Station("c1")

	assert.Same(t, transfer, net.TransferBetween(a2, b1))
	assert.Same(t, transfer, net.TransferBetween(c1, b1))

	minutes, ok := net.EdgeTime(b1, c1)
	assert.True(t, ok)
	assert.Equal(t, 3, minutes)

	a1, _ := net.Station("a1")
	assert.Nil(t, net.TransferBetween(a1, b1))
	assert.Contains(t, buf.String(), "fewer than two known stations")
}

func TestOwnership(t *testing.T) {
	b := NewBuilder(nil)
	metro := addLine(b, Metro, "m1", nil, "shared", "m2")
	suburban := addLine(b, Suburban, "s1", nil, "shared", "s2")
	grayed := &Line{ID: "g1", Stations: []*Station{b.AddStation(Station{ID: "g"}), b.AddStation(Station{ID: "s2"})}}
	b.AddGrayedLine(grayed)
	net, err := b.Build()
	require.NoError(t, err)

	shared, _ := net.Station("shared")
	s2, _ := net.Station("s2")
	g, _ := net.Station("g")

	t.Run("metro layer prefers metro lines", func(t *testing.T) {
		owners := net.Ownership(Metro)
		assert.Same(t, metro, owners.LineOf(shared))
		assert.Same(t, grayed, owners.LineOf(s2), "grayed lines outrank other layers")
		assert.Same(t, grayed, owners.LineOf(g))
	})

	t.Run("suburban layer prefers suburban lines", func(t *testing.T) {
		owners := net.Ownership(Suburban)
		assert.Same(t, suburban, owners.LineOf(shared))
		assert.Same(t, suburban, owners.LineOf(s2))
		assert.Equal(t, Suburban, owners.Layer())
	})

	t.Run("results are cached", func(t *testing.T) {
		assert.Same(t, net.Ownership(RiverTram), net.Ownership(RiverTram))
	})

	t.Run("nil ownership resolves nothing", func(t *testing.T) {
		var owners *Ownership
		assert.Nil(t, owners.LineOf(shared))
	})
}

func TestLineNavigation(t *testing.T) {
	b := NewBuilder(nil)
	line := addLine(b, Metro, "1", nil, "a", "b", "c")
	_, err := b.Build()
	require.NoError(t, err)
	a, bst, c := line.Stations[0], line.Stations[1], line.Stations[2]

	assert.Same(t, bst, line.Next(a))
	assert.Same(t, a, line.Prev(bst))
	assert.Nil(t, line.Next(c))
	assert.Nil(t, line.Prev(a))
	assert.Nil(t, line.Next(&Station{ID: "elsewhere"}))

	line.IsCircle = true
	assert.Same(t, a, line.Next(c))
	assert.Same(t, c, line.Prev(a))
}

func TestPathTime(t *testing.T) {
	b := NewBuilder(nil)
	line := addLine(b, Metro, "1", nil, "a", "b", "c")
	_, err := b.Build()
	require.NoError(t, err)

	total, ok := PathTime(line.Stations)
	assert.True(t, ok)
	assert.Equal(t, 4, total)

	_, ok = PathTime([]*Station{line.Stations[0], line.Stations[2]})
	assert.False(t, ok)
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		in       string
		expected Layer
		wantErr  bool
	}{
		{"metro", Metro, false},
		{"", Metro, false},
		{"Suburban", Suburban, false},
		{"river_tram", RiverTram, false},
		{"ferry", Metro, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLayer(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "62.00", Amount(6200).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-1.50", Amount(-150).String())
}
