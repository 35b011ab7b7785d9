package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

type stopArrivalsResponse struct {
	StopID   string                   `json:"stopId"`
	StopName string                   `json:"stopName,omitempty"`
	Arrivals []models.RealtimeArrival `json:"arrivals"`
}

// stopArrivalsHandler returns live arrival predictions for a stop. A live
// feed outage degrades to an empty arrivals list; the stop itself must
// exist in the current snapshot.
func (api *RestAPI) stopArrivalsHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	stopID := params.ByName("id")

	snapshot := api.FeedStore.CurrentSnapshot()
	stop := snapshot.StopByID(stopID)
	if stop == nil {
		api.badRequestResponse(w, r, "unknown stop id")
		return
	}

	var arrivals []models.RealtimeArrival
	if api.Realtime != nil {
		arrivals = api.Realtime.ArrivalsForStop(stopID)
	}
	if arrivals == nil {
		arrivals = []models.RealtimeArrival{}
	}

	api.sendResponse(w, r, stopArrivalsResponse{
		StopID:   stopID,
		StopName: stop.Name,
		Arrivals: arrivals,
	})
}
