package guidance

import "navigator.metromap.org/internal/network"

// Resolve picks the walking path for a transfer from the rider's arrival
// direction. An entry whose Prev matches wins; otherwise the direction-agnostic
// entry; otherwise any entry for the same from/to pair. prev may be nil at the
// start of a route.
func Resolve(t *network.Transfer, prev, from, to *network.Station) *network.TransferRoute {
	if t == nil || from == nil || to == nil {
		return nil
	}

	var generic, fallback *network.TransferRoute
	for i := range t.Routes {
		r := &t.Routes[i]
		if r.From != from.ID || r.To != to.ID {
			continue
		}
		switch {
		case prev != nil && r.Prev == prev.ID:
			return r
		case r.Prev == "" && generic == nil:
			generic = r
		case fallback == nil:
			fallback = r
		}
	}

	if generic != nil {
		return generic
	}
	return fallback
}

// DiagramFor returns the walking diagram for a resolved route, falling back
// to the transfer's own map.
func DiagramFor(t *network.Transfer, r *network.TransferRoute) string {
	if r != nil && r.Map != "" {
		return r.Map
	}
	if t != nil {
		return t.Map
	}
	return ""
}
