package restapi

import (
	"log/slog"
	"net/http"

	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/models"
	"navigator.metromap.org/internal/trip"
	"navigator.metromap.org/internal/utils"
)

func (api *RestAPI) sendTrip(w http.ResponseWriter, r *http.Request) {
	snap := api.Navigator.Trip()
	refs := models.NewReferences(snap.Route, api.Navigator.Owners())
	api.sendResponse(w, r, models.NewEntryResponse(models.NewTrip(snap), refs))
}

func (api *RestAPI) tripHandler(w http.ResponseWriter, r *http.Request) {
	api.sendTrip(w, r)
}

// startTripHandler starts tracking the current plan. Passing from and to
// plans a new route first.
func (api *RestAPI) startTripHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("from") != "" || query.Get("to") != "" {
		from, to, ok := api.routeParams(w, r)
		if !ok {
			return
		}
		if _, err := api.Navigator.Plan(r.Context(), from, to); err != nil {
			api.navigationErrorResponse(w, r, err)
			return
		}
	}

	if _, err := api.Navigator.StartTrip(); err != nil {
		api.navigationErrorResponse(w, r, err)
		return
	}
	api.sendTrip(w, r)
}

func (api *RestAPI) tripStationHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}
	if _, ok := api.Navigator.Station(id); !ok {
		api.errorResponse(w, r, http.StatusNotFound, "unknown station")
		return
	}

	api.Navigator.Signal(id)
	api.sendTrip(w, r)
}

// tripLocationHandler matches a GPS fix to the nearest station and reports
// it to the trip.
func (api *RestAPI) tripLocationHandler(w http.ResponseWriter, r *http.Request) {
	if api.Matcher == nil {
		api.errorResponse(w, r, http.StatusNotImplemented, "location matching unavailable")
		return
	}

	query := r.URL.Query()
	fieldErrors := utils.RequireParams(query, nil, "lat", "lon")
	lat, fieldErrors := utils.ParseFloatParam(query, "lat", fieldErrors)
	lon, fieldErrors := utils.ParseFloatParam(query, "lon", fieldErrors)
	radius, fieldErrors := utils.ParseFloatParam(query, "radius", fieldErrors)
	if len(fieldErrors) == 0 {
		fieldErrors = utils.ValidateLocationParams(lat, lon, radius)
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	st, distance, ok := api.Matcher.Nearest(lat, lon, radius)
	if !ok {
		api.errorResponse(w, r, http.StatusNotFound, "no station nearby")
		return
	}

	logging.FromContext(r.Context()).Debug("matched location to station",
		slog.String("station_id", st.ID),
		slog.Float64("distance_m", distance))

	api.Navigator.Signal(st.ID)
	api.sendTrip(w, r)
}

func (api *RestAPI) stopTripHandler(w http.ResponseWriter, r *http.Request) {
	api.Navigator.StopTrip()
	api.sendTrip(w, r)
}

func (api *RestAPI) dismissTripHandler(w http.ResponseWriter, r *http.Request) {
	api.Navigator.DismissTrip()
	api.sendTrip(w, r)
}

func (api *RestAPI) noticesHandler(w http.ResponseWriter, r *http.Request) {
	notices := api.Navigator.Notices()
	if notices == nil {
		notices = []trip.Notice{}
	}
	api.sendResponse(w, r, models.NewListResponse(notices, models.NewEmptyReferences()))
}
