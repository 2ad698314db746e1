package restapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"navigator.metromap.org/internal/models"
	"navigator.metromap.org/internal/navigator"
	"navigator.metromap.org/internal/routing"
	"navigator.metromap.org/internal/utils"
)

// Fare quotes come from a remote schedule service.
const costTimeout = 30 * time.Second

// routeParams reads and validates the from/to station pair. On failure the
// validation response has already been written.
func (api *RestAPI) routeParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	query := r.URL.Query()
	fieldErrors := utils.RequireParams(query, nil, "from", "to")
	for _, key := range []string{"from", "to"} {
		if v := query.Get(key); v != "" {
			if err := utils.ValidateID(v); err != nil {
				fieldErrors[key] = append(fieldErrors[key], err.Error())
			}
		}
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return "", "", false
	}
	return query.Get("from"), query.Get("to"), true
}

func (api *RestAPI) navigationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, routing.ErrUnknownStation):
		api.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, routing.ErrNoRoute):
		api.errorResponse(w, r, http.StatusNotFound, "no route found")
	case errors.Is(err, navigator.ErrNoPlan):
		api.errorResponse(w, r, http.StatusConflict, "no route planned")
	case errors.Is(err, navigator.ErrPlanSuperseded):
		api.errorResponse(w, r, http.StatusConflict, "route changed")
	case errors.Is(err, navigator.ErrNoNetwork):
		api.errorResponse(w, r, http.StatusServiceUnavailable, "no network loaded")
	case errors.Is(err, context.DeadlineExceeded):
		api.errorResponse(w, r, http.StatusGatewayTimeout, "fare calculation timed out")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) routeHandler(w http.ResponseWriter, r *http.Request) {
	from, to, ok := api.routeParams(w, r)
	if !ok {
		return
	}

	plan, err := api.Navigator.Plan(r.Context(), from, to)
	if err != nil {
		api.navigationErrorResponse(w, r, err)
		return
	}

	entry := models.NewRoute(plan.Route, plan.Segments, plan.Layer)
	refs := models.NewReferences(plan.Route.Stations, api.Navigator.Owners())
	api.sendResponse(w, r, models.NewEntryResponse(entry, refs))
}

// routeCostHandler plans the route and waits for its final fare.
func (api *RestAPI) routeCostHandler(w http.ResponseWriter, r *http.Request) {
	from, to, ok := api.routeParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), costTimeout)
	defer cancel()

	plan, err := api.Navigator.Plan(ctx, from, to)
	if err != nil {
		api.navigationErrorResponse(w, r, err)
		return
	}

	cost, err := api.Navigator.FinalCost(ctx)
	if err != nil {
		api.navigationErrorResponse(w, r, err)
		return
	}

	refs := models.NewReferences(plan.Route.Stations, api.Navigator.Owners())
	api.sendResponse(w, r, models.NewEntryResponse(models.NewCost(cost), refs))
}
