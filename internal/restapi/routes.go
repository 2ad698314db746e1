package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/api/current-time.json", api.currentTimeHandler)
	router.HandlerFunc(http.MethodGet, "/api/stations.json", api.stationsHandler)
	router.HandlerFunc(http.MethodPost, "/api/layer/:layer", api.layerHandler)

	router.HandlerFunc(http.MethodGet, "/api/route.json", api.routeHandler)
	router.HandlerFunc(http.MethodGet, "/api/route-cost.json", api.routeCostHandler)

	router.HandlerFunc(http.MethodGet, "/api/trip.json", api.tripHandler)
	router.HandlerFunc(http.MethodPost, "/api/trip/start", api.startTripHandler)
	router.HandlerFunc(http.MethodPost, "/api/trip/station/:id", api.tripStationHandler)
	router.HandlerFunc(http.MethodPost, "/api/trip/location", api.tripLocationHandler)
	router.HandlerFunc(http.MethodPost, "/api/trip/stop", api.stopTripHandler)
	router.HandlerFunc(http.MethodPost, "/api/trip/dismiss", api.dismissTripHandler)
	router.HandlerFunc(http.MethodGet, "/api/notices.json", api.noticesHandler)

	router.NotFound = http.HandlerFunc(api.sendNotFound)
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}
