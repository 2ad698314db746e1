package network

import (
	"fmt"
	"strings"
)

// Layer identifies one of the loaded network maps.
type Layer int

const (
	Metro Layer = iota
	Suburban
	RiverTram
)

// Layers lists every layer in ownership fallback order.
var Layers = []Layer{Metro, Suburban, RiverTram}

func (l Layer) String() string {
	switch l {
	case Metro:
		return "metro"
	case Suburban:
		return "suburban"
	case RiverTram:
		return "river_tram"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// ParseLayer converts a layer name as used in URLs and config into a Layer.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metro", "":
		return Metro, nil
	case "suburban", "suburb":
		return Suburban, nil
	case "river_tram", "rivertram", "river-tram", "tram":
		return RiverTram, nil
	}
	return Metro, fmt.Errorf("unknown network layer %q", s)
}

// LineType only affects how a line is drawn.
type LineType string

const (
	LineSingle LineType = "single"
	LineDouble LineType = "double"
)

// Line is an ordered sequence of stations with an optional fare strategy.
type Line struct {
	ID       string
	Name     string
	Color    string
	Stations []*Station
	IsCircle bool
	Type     LineType
	Tariff   *Tariff
	Layer    Layer
}

// IndexOf returns the position of st on the line, or -1.
func (l *Line) IndexOf(st *Station) int {
	for i, s := range l.Stations {
		if s == st {
			return i
		}
	}
	return -1
}

// Next returns the station after st, wrapping around on circle lines.
func (l *Line) Next(st *Station) *Station {
	i := l.IndexOf(st)
	switch {
	case i < 0:
		return nil
	case i+1 < len(l.Stations):
		return l.Stations[i+1]
	case l.IsCircle && len(l.Stations) > 1:
		return l.Stations[0]
	}
	return nil
}

// Prev returns the station before st, wrapping around on circle lines.
func (l *Line) Prev(st *Station) *Station {
	i := l.IndexOf(st)
	switch {
	case i < 0:
		return nil
	case i > 0:
		return l.Stations[i-1]
	case l.IsCircle && len(l.Stations) > 1:
		return l.Stations[len(l.Stations)-1]
	}
	return nil
}
