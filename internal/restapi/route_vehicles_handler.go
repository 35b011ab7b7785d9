package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

type routeVehiclesResponse struct {
	RouteID  string                   `json:"routeId"`
	Vehicles []models.VehiclePosition `json:"vehicles"`
}

func (api *RestAPI) routeVehiclesHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	routeID := params.ByName("id")

	snapshot := api.FeedStore.CurrentSnapshot()
	if snapshot.RouteByID(routeID) == nil {
		api.badRequestResponse(w, r, "unknown route id")
		return
	}

	var vehicles []models.VehiclePosition
	if api.Realtime != nil {
		vehicles = api.Realtime.VehiclesForRoute(routeID)
	}
	if vehicles == nil {
		vehicles = []models.VehiclePosition{}
	}

	api.sendResponse(w, r, routeVehiclesResponse{
		RouteID:  routeID,
		Vehicles: vehicles,
	})
}
