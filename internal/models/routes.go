package models

// RouteMode is the vehicle mode of a transit route.
type RouteMode int

const (
	RouteModeBus RouteMode = iota
	RouteModeRail
)

func (m RouteMode) String() string {
	if m == RouteModeRail {
		return "rail"
	}
	return "bus"
}

// Route is a transit route from the static feed. Immutable after load.
type Route struct {
	ID        string    `json:"id"`
	ShortName string    `json:"shortName"`
	LongName  string    `json:"longName"`
	Mode      RouteMode `json:"mode"`
}

// DisplayName returns the rider-facing name for the route, preferring the
// short name ("8", "C") over the long name.
func (r Route) DisplayName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}
