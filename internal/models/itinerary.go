package models

import "time"

// LegMode is the travel mode of one itinerary leg.
type LegMode int

const (
	LegModeWalk LegMode = iota
	LegModeTransit
)

func (m LegMode) String() string {
	if m == LegModeTransit {
		return "transit"
	}
	return "walk"
}

// Leg is one mode-homogeneous segment of an itinerary.
type Leg struct {
	Mode           LegMode         `json:"mode"`
	RouteID        string          `json:"routeId,omitempty"`
	RouteName      string          `json:"routeName,omitempty"`
	FromStopID     string          `json:"fromStopId,omitempty"`
	ToStopID       string          `json:"toStopId,omitempty"`
	From           CoordinatePoint `json:"from"`
	To             CoordinatePoint `json:"to"`
	DistanceMeters float64         `json:"distanceMeters"`
	Duration       time.Duration   `json:"-"`
	DurationSecs   int             `json:"durationSeconds"`
	Cost           float64         `json:"cost"`

	// Scheduled arrival at the leg's end. Zero when only distance-derived
	// estimates are available.
	ScheduledArrival time.Time `json:"scheduledArrival,omitempty"`

	// Live-adjusted fields, populated by reconciliation. PredictedArrival nil
	// means no live data matched; Occupancy stays OccupancyUnknown in that case.
	PredictedArrival *time.Time `json:"predictedArrival,omitempty"`
	DelaySeconds     *int       `json:"delaySeconds,omitempty"`
	Occupancy        Occupancy  `json:"occupancy"`
	VehicleID        string     `json:"vehicleId,omitempty"`
}

// Itinerary is a candidate trip plan: an ordered sequence of legs with
// aggregate duration, cost and ranking inputs. Itineraries are built per
// request and discarded after the response; they have no persistent identity.
type Itinerary struct {
	Legs      []Leg         `json:"legs"`
	Duration  time.Duration `json:"-"`
	Transfers int           `json:"transfers"`
	Cost      float64       `json:"cost"`

	// Heuristic marks itineraries produced by the corridor fallback table
	// rather than derived from feed data. They carry lower confidence and
	// must not be presented as equivalent to feed-derived results.
	Heuristic bool   `json:"heuristic"`
	Summary   string `json:"summary,omitempty"`
}

// DurationSeconds is the aggregate duration in whole seconds, for JSON output.
func (it Itinerary) DurationSeconds() int {
	return int(it.Duration.Seconds())
}

// TransitRouteIDs returns the route IDs of the itinerary's transit legs, in order.
func (it Itinerary) TransitRouteIDs() []string {
	var ids []string
	for _, leg := range it.Legs {
		if leg.Mode == LegModeTransit && leg.RouteID != "" {
			ids = append(ids, leg.RouteID)
		}
	}
	return ids
}
