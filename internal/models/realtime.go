package models

import "time"

// Occupancy is the ordinal crowding level reported by a live vehicle feed.
// OccupancyUnknown means no live data was reported, which is distinct from
// OccupancyEmpty (known to have no passengers).
type Occupancy int

const (
	OccupancyUnknown Occupancy = iota
	OccupancyEmpty
	OccupancyManySeats
	OccupancyFewSeats
	OccupancyStandingRoom
	OccupancyCrushed
	OccupancyFull
)

func (o Occupancy) String() string {
	switch o {
	case OccupancyEmpty:
		return "EMPTY"
	case OccupancyManySeats:
		return "MANY_SEATS_AVAILABLE"
	case OccupancyFewSeats:
		return "FEW_SEATS_AVAILABLE"
	case OccupancyStandingRoom:
		return "STANDING_ROOM_ONLY"
	case OccupancyCrushed:
		return "CRUSHED_STANDING_ROOM_ONLY"
	case OccupancyFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// RealtimeArrival is one live arrival prediction for a (stop, route) pair.
// Ephemeral: its useful lifetime is bounded by the live feed polling
// interval and it is never persisted.
type RealtimeArrival struct {
	StopID       string    `json:"stopId"`
	RouteID      string    `json:"routeId"`
	VehicleID    string    `json:"vehicleId"`
	Predicted    time.Time `json:"predicted"`
	DelaySeconds int       `json:"delaySeconds"`
	Occupancy    Occupancy `json:"occupancy"`
}

// VehiclePosition is a live vehicle location on a route.
type VehiclePosition struct {
	VehicleID string    `json:"vehicleId"`
	RouteID   string    `json:"routeId"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Bearing   float64   `json:"bearing"`
	Reported  time.Time `json:"reported"`
}
