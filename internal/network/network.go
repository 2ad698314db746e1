package network

import (
	"errors"
	"log/slog"
	"sync"

	"navigator.metromap.org/internal/logging"
)

// ErrEmptyNetwork is returned by Build when nothing was loaded.
var ErrEmptyNetwork = errors.New("network has no stations")

// LineResolver maps a station to the line it is attributed to.
type LineResolver interface {
	LineOf(st *Station) *Line
}

// Network is the read-only, multi-layer station graph.
type Network struct {
	stations  map[string]*Station
	order     []*Station
	lines     map[Layer][]*Line
	grayed    []*Line
	transfers []*Transfer
	pairs     map[edgeKey]*Transfer

	ownersMu sync.Mutex
	owners   map[Layer]*Ownership
}

// Station looks a station up by its globally unique ID.
func (n *Network) Station(id string) (*Station, bool) {
	st, ok := n.stations[id]
	return st, ok
}

// Stations returns every station in load order.
func (n *Network) Stations() []*Station {
	out := make([]*Station, len(n.order))
	copy(out, n.order)
	return out
}

// Lines returns the primary lines of a layer.
func (n *Network) Lines(layer Layer) []*Line {
	return n.lines[layer]
}

// GrayedLines returns lines drawn grayed out on the metro map.
func (n *Network) GrayedLines() []*Line {
	return n.grayed
}

func (n *Network) Transfers() []*Transfer {
	return n.transfers
}

// TransferBetween returns the first transfer linking a and b, or nil.
func (n *Network) TransferBetween(a, b *Station) *Transfer {
	if a == nil || b == nil {
		return nil
	}
	return n.pairs[newEdgeKey(a.ID, b.ID)]
}

// EdgeTime returns the direct travel time between two adjacent stations.
func (n *Network) EdgeTime(a, b *Station) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return a.TimeTo(b)
}

// Ownership returns the line attribution for the given active layer. Results
// are cached per layer.
func (n *Network) Ownership(active Layer) *Ownership {
	n.ownersMu.Lock()
	defer n.ownersMu.Unlock()

	if o, ok := n.owners[active]; ok {
		return o
	}

	o := &Ownership{layer: active, owner: make(map[*Station]*Line, len(n.order))}
	claim := func(lines []*Line) {
		for _, line := range lines {
			for _, st := range line.Stations {
				if _, taken := o.owner[st]; !taken {
					o.owner[st] = line
				}
			}
		}
	}

	claim(n.lines[active])
	claim(n.grayed)
	for _, layer := range Layers {
		if layer != active {
			claim(n.lines[layer])
		}
	}

	n.owners[active] = o
	return o
}

// Stats summarizes the network for logging and debugging.
func (n *Network) Stats() map[string]int {
	stats := map[string]int{
		"stations":     len(n.order),
		"transfers":    len(n.transfers),
		"grayed_lines": len(n.grayed),
	}
	for _, layer := range Layers {
		stats[layer.String()+"_lines"] = len(n.lines[layer])
	}
	return stats
}

// Ownership attributes each station to exactly one line.
type Ownership struct {
	layer Layer
	owner map[*Station]*Line
}

func (o *Ownership) Layer() Layer {
	return o.layer
}

// LineOf returns the owning line of st, or nil for unattributed stations.
func (o *Ownership) LineOf(st *Station) *Line {
	if o == nil {
		return nil
	}
	return o.owner[st]
}

type edgeKey struct {
	a, b string
}

func newEdgeKey(x, y string) edgeKey {
	if x > y {
		x, y = y, x
	}
	return edgeKey{a: x, b: y}
}

type rawEdge struct {
	from, to string
	minutes  int
}

type rawTransfer struct {
	stationIDs []string
	transfer   Transfer
}

// Builder accumulates stations, lines, edges and transfers from one or more
// sources and produces a validated Network.
type Builder struct {
	logger    *slog.Logger
	stations  map[string]*Station
	order     []*Station
	lines     map[Layer][]*Line
	grayed    []*Line
	edges     []rawEdge
	transfers []rawTransfer
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger:   logger.With(slog.String("component", "network_builder")),
		stations: make(map[string]*Station),
		lines:    make(map[Layer][]*Line),
	}
}

// AddStation registers st and returns the canonical pointer for its ID. When
// the ID is already known the first registration wins.
func (b *Builder) AddStation(st Station) *Station {
	if existing, ok := b.stations[st.ID]; ok {
		return existing
	}
	st.Neighbors = nil
	canonical := &st
	b.stations[st.ID] = canonical
	b.order = append(b.order, canonical)
	return canonical
}

// Station returns a station registered earlier.
func (b *Builder) Station(id string) (*Station, bool) {
	st, ok := b.stations[id]
	return st, ok
}

// AddEdge declares a neighbor edge. Edges are resolved in Build, so the
// target may belong to a layer that is loaded later.
func (b *Builder) AddEdge(fromID, toID string, minutes int) {
	b.edges = append(b.edges, rawEdge{from: fromID, to: toID, minutes: minutes})
}

// AddLine registers a primary line. Its stations must come from AddStation.
func (b *Builder) AddLine(line *Line) {
	b.lines[line.Layer] = append(b.lines[line.Layer], line)
}

func (b *Builder) AddGrayedLine(line *Line) {
	b.grayed = append(b.grayed, line)
}

// AddTransfer registers a transfer between the given station IDs. The
// Stations field of t is ignored.
func (b *Builder) AddTransfer(stationIDs []string, t Transfer) {
	b.transfers = append(b.transfers, rawTransfer{stationIDs: stationIDs, transfer: t})
}

// Build resolves every edge and transfer. Invalid edges and transfers are
// logged and dropped; one-way edges are mirrored.
func (b *Builder) Build() (*Network, error) {
	if len(b.order) == 0 {
		return nil, ErrEmptyNetwork
	}

	for _, st := range b.order {
		st.Neighbors = nil
	}

	times := make(map[edgeKey]int)
	directions := make(map[edgeKey]uint8)
	var keys []edgeKey

	declare := func(from, to string, minutes int, both bool) {
		key := newEdgeKey(from, to)
		prev, seen := times[key]
		switch {
		case !seen:
			keys = append(keys, key)
			times[key] = minutes
		case minutes < prev:
			times[key] = minutes
		}
		if seen && prev != minutes && !both {
			b.logger.Warn("conflicting edge times, keeping the smaller one",
				slog.String("from", from), slog.String("to", to),
				slog.Int("existing", prev), slog.Int("declared", minutes))
		}
		switch {
		case both:
			directions[key] = 3
		case from == key.a:
			directions[key] |= 1
		default:
			directions[key] |= 2
		}
	}

	for _, e := range b.edges {
		if e.from == e.to {
			continue
		}
		if e.minutes <= 0 {
			b.logger.Warn("dropping edge with non-positive time",
				slog.String("from", e.from), slog.String("to", e.to), slog.Int("minutes", e.minutes))
			continue
		}
		if _, ok := b.stations[e.from]; !ok {
			b.logger.Warn("dropping edge from unknown station", slog.String("from", e.from))
			continue
		}
		if _, ok := b.stations[e.to]; !ok {
			b.logger.Warn("dropping edge to unknown station",
				slog.String("from", e.from), slog.String("to", e.to))
			continue
		}
		declare(e.from, e.to, e.minutes, false)
	}

	net := &Network{
		stations: b.stations,
		order:    b.order,
		lines:    b.lines,
		grayed:   b.grayed,
		pairs:    make(map[edgeKey]*Transfer),
		owners:   make(map[Layer]*Ownership),
	}

	for _, raw := range b.transfers {
		t := raw.transfer
		t.Stations = nil
		seen := make(map[string]bool, len(raw.stationIDs))
		for _, id := range raw.stationIDs {
			st, ok := b.stations[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			t.Stations = append(t.Stations, st)
		}
		if len(t.Stations) < 2 {
			b.logger.Debug("skipping transfer with fewer than two known stations",
				slog.Any("stations", raw.stationIDs))
			continue
		}

		routes := t.Routes[:0:0]
		for _, r := range t.Routes {
			if r.From == "" || r.To == "" {
				b.logger.Debug("skipping transfer route without endpoints", slog.String("map", r.Map))
				continue
			}
			routes = append(routes, r)
		}
		t.Routes = routes

		transfer := &t
		net.transfers = append(net.transfers, transfer)

		minutes := t.Time
		if minutes < 1 {
			minutes = 1
		}
		for i := 0; i < len(t.Stations); i++ {
			for j := i + 1; j < len(t.Stations); j++ {
				key := newEdgeKey(t.Stations[i].ID, t.Stations[j].ID)
				if _, exists := net.pairs[key]; !exists {
					net.pairs[key] = transfer
				}
				declare(t.Stations[i].ID, t.Stations[j].ID, minutes, true)
			}
		}
	}

	mirrored := 0
	for _, key := range keys {
		if directions[key] != 3 {
			mirrored++
			b.logger.Warn("mirroring one-way edge", slog.String("a", key.a), slog.String("b", key.b))
		}
		a, bst := b.stations[key.a], b.stations[key.b]
		minutes := times[key]
		a.Neighbors = append(a.Neighbors, Neighbor{Station: bst, Time: minutes})
		bst.Neighbors = append(bst.Neighbors, Neighbor{Station: a, Time: minutes})
	}

	logging.LogOperation(b.logger, "network_built",
		slog.Int("stations", len(net.order)),
		slog.Int("edges", len(keys)),
		slog.Int("mirrored_edges", mirrored),
		slog.Int("transfers", len(net.transfers)))

	return net, nil
}
