package restapi

import (
	"net/http"

	"navigator.metromap.org/internal/models"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/utils"
)

// stationsHandler lists the stations of one layer, or of the whole network
// when no layer is given. Stations are attributed to lines of the active
// layer.
func (api *RestAPI) stationsHandler(w http.ResponseWriter, r *http.Request) {
	net := api.Navigator.Network()
	if net == nil {
		api.errorResponse(w, r, http.StatusServiceUnavailable, "no network loaded")
		return
	}
	owners := api.Navigator.Owners()

	layerParam := r.URL.Query().Get("layer")
	if layerParam == "" {
		stations := net.Stations()
		api.sendResponse(w, r, models.NewListResponse(
			models.NewStations(stations, owners),
			lineReferences(net.Lines(api.Navigator.Layer()))))
		return
	}

	layer, err := network.ParseLayer(layerParam)
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"layer": {err.Error()}})
		return
	}

	lines := net.Lines(layer)
	var stations []*network.Station
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, st := range line.Stations {
			if !seen[st.ID] {
				seen[st.ID] = true
				stations = append(stations, st)
			}
		}
	}

	api.sendResponse(w, r, models.NewListResponse(models.NewStations(stations, owners), lineReferences(lines)))
}

func lineReferences(lines []*network.Line) models.ReferencesModel {
	refs := models.NewEmptyReferences()
	for _, line := range lines {
		refs.Lines = append(refs.Lines, models.NewLineReference(line))
	}
	return refs
}

func (api *RestAPI) layerHandler(w http.ResponseWriter, r *http.Request) {
	name := utils.ExtractIDFromParams(r, "layer")
	layer, err := network.ParseLayer(name)
	if err != nil || name == "" {
		api.validationErrorResponse(w, r, map[string][]string{"layer": {"unknown network layer"}})
		return
	}

	api.Navigator.SetLayer(layer)

	api.sendResponse(w, r, models.NewOKResponse(map[string]string{"layer": layer.String()}))
}
