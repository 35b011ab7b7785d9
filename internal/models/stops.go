package models

// Stop is a physical boarding/alighting location from the static feed.
// Stops are immutable once loaded; re-ingestion replaces them wholesale.
type Stop struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	RouteIDs []string `json:"routeIds"`
}

func NewStop(id, name string, lat, lon float64, routeIDs []string) Stop {
	return Stop{
		ID:       id,
		Name:     name,
		Lat:      lat,
		Lon:      lon,
		RouteIDs: routeIDs,
	}
}

// Coordinate returns the stop's location as a CoordinatePoint.
func (s Stop) Coordinate() CoordinatePoint {
	return CoordinatePoint{Lat: s.Lat, Lon: s.Lon}
}
