// Package restapi exposes the trip-planning core over HTTP. Handlers are
// thin: they parse parameters, call into the planner/feed/realtime packages
// and write the standard response envelope.
package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/app"
)

type RestAPI struct {
	*app.Application
}

func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{Application: application}
}

// Routes builds the router with request logging applied to every endpoint.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/api/v1/plan", api.planTripHandler)
	// Registered outside the stops/ subtree: httprouter rejects a static
	// path alongside the :id wildcard used by the arrivals endpoint.
	router.HandlerFunc(http.MethodGet, "/api/v1/stops-nearby", api.stopsNearbyHandler)
	router.Handle(http.MethodGet, "/api/v1/stops/:id/arrivals", api.stopArrivalsHandler)
	router.Handle(http.MethodGet, "/api/v1/routes/:id/vehicles", api.routeVehiclesHandler)
	router.HandlerFunc(http.MethodGet, "/api/v1/feed/status", api.feedStatusHandler)
	router.HandlerFunc(http.MethodPost, "/api/v1/feed/refresh", api.feedRefreshHandler)

	return NewRequestLoggingMiddleware(api.Logger)(router)
}
