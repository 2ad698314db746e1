package network

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"
	"navigator.metromap.org/internal/logging"
)

// GTFSOptions controls how a static GTFS feed is folded into a layer.
type GTFSOptions struct {
	// IDPrefix keeps feed stop IDs unique across layers.
	IDPrefix string
	// Tariff is attached to every line built from the feed.
	Tariff *Tariff
}

// LoadGTFS downloads or reads a static GTFS zip and adds it to the builder.
// source is either an http(s) URL or a local path.
func (b *Builder) LoadGTFS(ctx context.Context, source string, layer Layer, opts GTFSOptions) error {
	raw, err := rawGTFSData(ctx, source, b.logger)
	if err != nil {
		return err
	}

	static, err := gtfs.ParseStatic(raw, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("error parsing GTFS data: %w", err)
	}

	b.AddGTFS(static, layer, opts)
	return nil
}

func rawGTFSData(ctx context.Context, source string, logger *slog.Logger) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("error building GTFS request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "gtfs_download_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading GTFS data: status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	return b, nil
}

// AddGTFS converts parsed static GTFS data into lines, edges and transfers.
// Each route becomes one line following its longest trip; platforms are
// folded into their parent station.
func (b *Builder) AddGTFS(static *gtfs.Static, layer Layer, opts GTFSOptions) {
	longest := make(map[string]*gtfs.ScheduledTrip)
	var routeOrder []string
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		current, seen := longest[trip.Route.Id]
		if !seen {
			routeOrder = append(routeOrder, trip.Route.Id)
		}
		if !seen || len(trip.StopTimes) > len(current.StopTimes) {
			longest[trip.Route.Id] = trip
		}
	}

	lines := 0
	for _, routeID := range routeOrder {
		trip := longest[routeID]
		if len(trip.StopTimes) < 2 {
			continue
		}

		stopTimes := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
		copy(stopTimes, trip.StopTimes)
		sort.Slice(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})

		line := &Line{
			ID:     opts.IDPrefix + trip.Route.Id,
			Name:   routeName(trip.Route),
			Color:  routeColor(trip.Route),
			Type:   LineSingle,
			Tariff: opts.Tariff,
			Layer:  layer,
		}

		var prev *Station
		var prevDeparture time.Duration
		for _, stopTime := range stopTimes {
			if stopTime.Stop == nil {
				continue
			}
			st := b.gtfsStation(stationStop(stopTime.Stop), line.Color, opts.IDPrefix)
			if st == prev {
				prevDeparture = stopTime.DepartureTime
				continue
			}
			line.Stations = append(line.Stations, st)
			if prev != nil {
				b.AddEdge(prev.ID, st.ID, travelMinutes(stopTime.ArrivalTime-prevDeparture))
			}
			prev, prevDeparture = st, stopTime.DepartureTime
		}

		b.AddLine(line)
		lines++
	}

	transfers := 0
	for _, tr := range static.Transfers {
		if tr.From == nil || tr.To == nil {
			continue
		}
		from := opts.IDPrefix + stationStop(tr.From).Id
		to := opts.IDPrefix + stationStop(tr.To).Id
		if from == to {
			continue
		}
		minutes := 1
		if tr.MinTransferTime != nil {
			minutes = travelMinutes(time.Duration(*tr.MinTransferTime) * time.Second)
		}
		b.AddTransfer([]string{from, to}, Transfer{Time: minutes, Type: TransferRegular})
		transfers++
	}

	logging.LogOperation(b.logger, "gtfs_layer_loaded",
		slog.String("layer", layer.String()),
		slog.Int("routes", len(static.Routes)),
		slog.Int("lines", lines),
		slog.Int("transfers", transfers))
}

func (b *Builder) gtfsStation(stop *gtfs.Stop, color, prefix string) *Station {
	if st, ok := b.stations[prefix+stop.Id]; ok {
		return st
	}
	return b.AddStation(Station{
		ID:    prefix + stop.Id,
		Name:  stop.Name,
		Lat:   stop.Latitude,
		Lon:   stop.Longitude,
		Color: color,
		ESP:   stop.Code,
	})
}

func stationStop(stop *gtfs.Stop) *gtfs.Stop {
	if stop.Parent != nil {
		return stop.Parent
	}
	return stop
}

func routeName(route *gtfs.Route) string {
	if route.ShortName != "" {
		return route.ShortName
	}
	return route.LongName
}

func routeColor(route *gtfs.Route) string {
	if route.Color == "" {
		return ""
	}
	return "#" + strings.TrimPrefix(route.Color, "#")
}

// travelMinutes rounds up to whole minutes; edges are never shorter than one.
func travelMinutes(d time.Duration) int {
	minutes := int(math.Ceil(d.Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}
