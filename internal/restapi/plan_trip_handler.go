package restapi

import (
	"errors"
	"net/http"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/planner"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/utils"
)

type planResponse struct {
	Itineraries  []models.Itinerary              `json:"itineraries"`
	Heuristic    bool                            `json:"heuristic"`
	Alternatives map[string]planner.RouteSummary `json:"alternatives,omitempty"`
}

// planTripHandler plans a trip between two coordinate pairs. Finding no
// itinerary is a successful empty response, not an error; only geocoding
// failures and internal faults produce error envelopes.
func (api *RestAPI) planTripHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	fromLat, fieldErrors := utils.ParseFloatParam(queryParams, "from_lat", nil)
	fromLon, _ := utils.ParseFloatParam(queryParams, "from_lon", fieldErrors)
	toLat, _ := utils.ParseFloatParam(queryParams, "to_lat", fieldErrors)
	toLon, _ := utils.ParseFloatParam(queryParams, "to_lon", fieldErrors)
	departure, _ := utils.ParseTimeParam(queryParams, "time", fieldErrors)

	fieldErrors = utils.ValidateLatLon(fromLat, fromLon, "from_lat", "from_lon", fieldErrors)
	fieldErrors = utils.ValidateLatLon(toLat, toLon, "to_lat", "to_lon", fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	req := planner.Request{
		Origin:    models.CoordinatePoint{Lat: fromLat, Lon: fromLon},
		Dest:      models.CoordinatePoint{Lat: toLat, Lon: toLon},
		Departure: departure,
	}
	if queryParams.Get("class") == "youth" {
		req.Class = planner.PassengerYouth
	} else if queryParams.Get("class") == "senior" {
		req.Class = planner.PassengerSenior
	}
	req.HasTransferCredential = queryParams.Get("transfer_credential") == "true"

	var itineraries []models.Itinerary
	var err error

	originText := queryParams.Get("from")
	destText := queryParams.Get("to")
	if originText != "" && destText != "" {
		itineraries, err = api.Planner.PlanAddresses(r.Context(), originText, destText, req)
	} else {
		itineraries, err = api.Planner.Plan(r.Context(), req)
	}

	if err != nil {
		var geocodeErr *planner.GeocodingError
		if errors.As(err, &geocodeErr) {
			api.badRequestResponse(w, r, geocodeErr.Error())
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}

	if itineraries == nil {
		itineraries = []models.Itinerary{}
	}

	heuristic := len(itineraries) > 0 && itineraries[0].Heuristic
	alternatives := api.Planner.ModeAlternatives(r.Context(), req.Origin, req.Dest)
	api.sendResponse(w, r, planResponse{
		Itineraries:  itineraries,
		Heuristic:    heuristic,
		Alternatives: alternatives,
	})
}
