package network

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"navigator.metromap.org/internal/logging"
)

type jsonLayer struct {
	Lines       []jsonLine     `json:"lines"`
	GrayedLines []jsonLine     `json:"grayedLines"`
	Transfers   []jsonTransfer `json:"transfers"`
}

type jsonLine struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Color    string        `json:"color"`
	IsCircle bool          `json:"isCircle"`
	LineType string        `json:"lineType"`
	Tariff   *jsonTariff   `json:"tariff"`
	Stations []jsonStation `json:"stations"`
}

type jsonStation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	ESP       string         `json:"esp"`
	Zone      int            `json:"zone"`
	Neighbors []jsonNeighbor `json:"neighbors"`
}

type jsonNeighbor struct {
	ID   string `json:"id"`
	Time int    `json:"time"`
}

type jsonTariff struct {
	Type       string           `json:"type"`
	Price      int64            `json:"price"`
	ZonePrices map[string]int64 `json:"zonePrices"`
}

type jsonTransfer struct {
	Stations    []string            `json:"stations"`
	Time        int                 `json:"time"`
	Type        string              `json:"type"`
	TransferMap string              `json:"transferMap"`
	Routes      []jsonTransferRoute `json:"routes"`
}

type jsonTransferRoute struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Prev        string  `json:"prev"`
	Next        string  `json:"next"`
	TransferMap string  `json:"transferMap"`
	Way         []Point `json:"way"`
}

// LoadFile reads one layer's JSON asset from disk.
func (b *Builder) LoadFile(path string, layer Layer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening network file: %w", err)
	}
	defer logging.SafeCloseWithLogging(f, b.logger, "network_file")

	if err := b.LoadJSON(f, layer); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// LoadJSON decodes one layer's JSON asset into the builder.
func (b *Builder) LoadJSON(r io.Reader, layer Layer) error {
	var doc jsonLayer
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("error decoding network JSON: %w", err)
	}

	for _, jl := range doc.Lines {
		line, err := b.decodeLine(jl, layer)
		if err != nil {
			return err
		}
		b.AddLine(line)
	}
	for _, jl := range doc.GrayedLines {
		line, err := b.decodeLine(jl, layer)
		if err != nil {
			return err
		}
		b.AddGrayedLine(line)
	}

	for _, jt := range doc.Transfers {
		t := Transfer{
			Time: jt.Time,
			Type: parseTransferType(jt.Type),
			Map:  jt.TransferMap,
		}
		for _, jr := range jt.Routes {
			t.Routes = append(t.Routes, TransferRoute{
				From: jr.From,
				To:   jr.To,
				Prev: jr.Prev,
				Next: jr.Next,
				Map:  jr.TransferMap,
				Way:  jr.Way,
			})
		}
		b.AddTransfer(jt.Stations, t)
	}

	logging.LogOperation(b.logger, "network_layer_loaded",
		slog.String("layer", layer.String()),
		slog.Int("lines", len(doc.Lines)),
		slog.Int("grayed_lines", len(doc.GrayedLines)),
		slog.Int("transfers", len(doc.Transfers)))

	return nil
}

func (b *Builder) decodeLine(jl jsonLine, layer Layer) (*Line, error) {
	if jl.ID == "" {
		return nil, fmt.Errorf("line %q has no id", jl.Name)
	}

	tariff, err := decodeTariff(jl.Tariff)
	if err != nil {
		return nil, fmt.Errorf("line %s: %w", jl.ID, err)
	}

	lineType := LineSingle
	if jl.LineType == string(LineDouble) {
		lineType = LineDouble
	}

	line := &Line{
		ID:       jl.ID,
		Name:     jl.Name,
		Color:    jl.Color,
		IsCircle: jl.IsCircle,
		Type:     lineType,
		Tariff:   tariff,
		Layer:    layer,
	}

	for _, js := range jl.Stations {
		if js.ID == "" {
			b.logger.Warn("skipping station without id", slog.String("line", jl.ID), slog.String("name", js.Name))
			continue
		}
		st := b.AddStation(Station{
			ID:    js.ID,
			Name:  js.Name,
			X:     js.X,
			Y:     js.Y,
			Lat:   js.Latitude,
			Lon:   js.Longitude,
			Color: jl.Color,
			ESP:   js.ESP,
			Zone:  js.Zone,
		})
		line.Stations = append(line.Stations, st)
		for _, n := range js.Neighbors {
			b.AddEdge(js.ID, n.ID, n.Time)
		}
	}

	return line, nil
}

func decodeTariff(jt *jsonTariff) (*Tariff, error) {
	if jt == nil {
		return nil, nil
	}
	switch jt.Type {
	case "flat_rate", "flat":
		return FlatRate(Amount(jt.Price)), nil
	case "zone_based", "zone":
		prices := make(map[int]Amount, len(jt.ZonePrices))
		for k, v := range jt.ZonePrices {
			zone, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("invalid tariff zone %q: %w", k, err)
			}
			prices[zone] = Amount(v)
		}
		return ZoneBased(prices), nil
	case "external_quote", "api":
		return ExternalQuote(), nil
	}
	return nil, fmt.Errorf("unknown tariff type %q", jt.Type)
}

func parseTransferType(s string) TransferType {
	switch TransferType(s) {
	case TransferCrossPlatform, TransferEscalator, TransferWalking, TransferGround:
		return TransferType(s)
	}
	return TransferRegular
}
