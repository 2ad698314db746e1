package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"navigator.metromap.org/internal/network"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                6,
}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
}

var dataTypes = []string{"stats", "stations", "lines", "grayed_lines", "transfers", "plan", "cost", "trip", "notices", "quote_cache", "config"}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{
		Title:     title,
		Pre:       spewConfig.Sdump(data),
		DataTypes: dataTypes,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// stationSummary keeps neighbor lists from recursing through the graph.
type stationSummary struct {
	ID, Name  string
	Zone      int
	ESP       string
	Neighbors map[string]int
}

func summarizeStations(stations []*network.Station) []stationSummary {
	out := make([]stationSummary, 0, len(stations))
	for _, st := range stations {
		s := stationSummary{ID: st.ID, Name: st.Name, Zone: st.Zone, ESP: st.ESP, Neighbors: make(map[string]int)}
		for _, n := range st.Neighbors {
			s.Neighbors[n.Station.ID] = n.Time
		}
		out = append(out, s)
	}
	return out
}

type lineSummary struct {
	ID, Name, Layer string
	Tariff          *network.Tariff
	IsCircle        bool
	Stations        []string
}

func summarizeLines(lines []*network.Line) []lineSummary {
	out := make([]lineSummary, 0, len(lines))
	for _, l := range lines {
		s := lineSummary{ID: l.ID, Name: l.Name, Layer: l.Layer.String(), Tariff: l.Tariff, IsCircle: l.IsCircle}
		for _, st := range l.Stations {
			s.Stations = append(s.Stations, st.ID)
		}
		out = append(out, s)
	}
	return out
}

type transferSummary struct {
	Stations []string
	Time     int
	Type     network.TransferType
	Map      string
	Routes   []network.TransferRoute
}

func summarizeTransfers(transfers []*network.Transfer) []transferSummary {
	out := make([]transferSummary, 0, len(transfers))
	for _, t := range transfers {
		s := transferSummary{Time: t.Time, Type: t.Type, Map: t.Map, Routes: t.Routes}
		for _, st := range t.Stations {
			s.Stations = append(s.Stations, st.ID)
		}
		out = append(out, s)
	}
	return out
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")
	session := webUI.Navigator
	net := session.Network()

	var data interface{}
	var title string

	if net == nil && dataType != "config" && dataType != "quote_cache" && dataType != "" {
		writeDebugData(w, "No network loaded", map[string]string{"error": "no network loaded"})
		return
	}

	switch dataType {
	case "stats":
		data = map[string]interface{}{"layer": session.Layer().String(), "counts": net.Stats()}
		title = "Network - Statistics"
	case "stations":
		data = summarizeStations(net.Stations())
		title = "Network - Stations"
	case "lines":
		var lines []*network.Line
		for _, layer := range network.Layers {
			lines = append(lines, net.Lines(layer)...)
		}
		data = summarizeLines(lines)
		title = "Network - Lines"
	case "grayed_lines":
		data = summarizeLines(net.GrayedLines())
		title = "Network - Grayed Lines"
	case "transfers":
		data = summarizeTransfers(net.Transfers())
		title = "Network - Transfers"
	case "plan":
		if plan, ok := session.CurrentPlan(); ok {
			data = map[string]interface{}{
				"layer":    plan.Layer.String(),
				"minutes":  plan.Route.TotalTime,
				"stations": summarizeStations(plan.Route.Stations),
				"segments": len(plan.Segments),
			}
		} else {
			data = map[string]string{"plan": "none"}
		}
		title = "Navigator - Current Plan"
	case "cost":
		if cost, ok := session.LastCost(); ok {
			data = cost
		} else {
			data = map[string]string{"cost": "not requested"}
		}
		title = "Navigator - Last Cost Update"
	case "trip":
		snap := session.Trip()
		data = map[string]interface{}{
			"state":         snap.State.String(),
			"tripId":        snap.TripID,
			"index":         snap.Index,
			"remainingTime": snap.RemainingTime,
			"stationsLeft":  snap.StationsLeft,
			"transfer":      snap.Transfer != nil,
		}
		title = "Navigator - Trip"
	case "notices":
		data = session.Notices()
		title = "Navigator - Notices"
	case "quote_cache":
		data = map[string]string{"quote_cache": "disabled"}
		if webUI.QuoteStore != nil {
			counts, err := webUI.QuoteStore.TableCounts()
			if err != nil {
				data = map[string]string{"error": err.Error()}
			} else {
				data = counts
			}
		}
		title = "Fare Quotes - Cache Tables"
	case "config":
		cfg := webUI.Config
		if cfg.QuoteAPIKey != "" {
			cfg.QuoteAPIKey = "<redacted>"
		}
		data = cfg
		title = "Application - Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: stats, stations, lines, grayed_lines, transfers, plan, cost, trip, notices, quote_cache, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
