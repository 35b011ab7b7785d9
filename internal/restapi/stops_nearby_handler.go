package restapi

import (
	"net/http"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/geo"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/utils"
)

// nearbyStop is one result stop annotated with where it sits relative to the
// query point.
type nearbyStop struct {
	models.Stop
	DistanceMeters float64 `json:"distanceMeters"`
	BearingDegrees float64 `json:"bearingDegrees"`
}

type nearbyStopsResponse struct {
	Count  int          `json:"count"`
	Radius float64      `json:"radiusMeters"`
	Stops  []nearbyStop `json:"stops"`
}

func (api *RestAPI) stopsNearbyHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	lat, fieldErrors := utils.ParseFloatParam(queryParams, "lat", nil)
	lon, _ := utils.ParseFloatParam(queryParams, "lon", fieldErrors)
	radius, _ := utils.ParseFloatParam(queryParams, "radius", fieldErrors)
	limit, _ := utils.ParseIntParam(queryParams, "limit", fieldErrors)

	fieldErrors = utils.ValidateLatLon(lat, lon, "lat", "lon", fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if radius <= 0 {
		radius = 500
	}
	if limit <= 0 {
		limit = 20
	}

	stops := api.FeedStore.GeoIndex().Nearest(lat, lon, radius, limit)

	results := make([]nearbyStop, 0, len(stops))
	for _, stop := range stops {
		results = append(results, nearbyStop{
			Stop:           stop,
			DistanceMeters: geo.Haversine(lat, lon, stop.Lat, stop.Lon),
			BearingDegrees: geo.BearingBetweenPoints(lat, lon, stop.Lat, stop.Lon),
		})
	}

	api.sendResponse(w, r, nearbyStopsResponse{
		Count:  len(results),
		Radius: radius,
		Stops:  results,
	})
}
