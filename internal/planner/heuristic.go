package planner

import (
	"github.com/rprovine/oahu-transit-hub-sub001/internal/geo"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// Region is a coarse geographic bucket of Oahu used to key the corridor
// fallback table.
type Region int

const (
	RegionUnknown Region = iota
	RegionWestSide
	RegionCentral
	RegionNorthShore
	RegionWindward
	RegionTownCenter
	RegionWaikiki
	RegionEastHonolulu
)

func (r Region) String() string {
	switch r {
	case RegionWestSide:
		return "west side"
	case RegionCentral:
		return "central Oahu"
	case RegionNorthShore:
		return "north shore"
	case RegionWindward:
		return "windward side"
	case RegionTownCenter:
		return "town center"
	case RegionWaikiki:
		return "Waikiki"
	case RegionEastHonolulu:
		return "east Honolulu"
	default:
		return "unknown"
	}
}

// regionFor buckets a coordinate into a region. Bounds are deliberately
// generous boxes; the heuristic path only needs "which side of the island",
// not parcel accuracy. Coordinates off the island resolve to RegionUnknown.
func regionFor(p models.CoordinatePoint) Region {
	if p.Lat < 21.2 || p.Lat > 21.75 || p.Lon < -158.3 || p.Lon > -157.6 {
		return RegionUnknown
	}

	switch {
	case p.Lon <= -158.0:
		if p.Lat >= 21.55 {
			return RegionNorthShore
		}
		return RegionWestSide
	case p.Lat >= 21.55:
		return RegionNorthShore
	case p.Lon <= -157.9:
		return RegionCentral
	case p.Lat >= 21.35:
		return RegionWindward
	case p.Lon >= -157.75:
		return RegionEastHonolulu
	case p.Lat <= 21.285 && p.Lon >= -157.84:
		return RegionWaikiki
	default:
		return RegionTownCenter
	}
}

// corridor is one hardcoded real-world route suggestion between two regions.
// This table encodes local route knowledge as a last resort so the rider is
// not handed an empty answer when the feed has no coverage. Results from it
// are always flagged heuristic and never merged with feed-derived plans.
type corridor struct {
	from, to Region
	routes   []string
	summary  string
}

var corridorTable = []corridor{
	{RegionWestSide, RegionTownCenter, []string{"C", "40", "42"}, "Country Express or Route 40/42 toward downtown and Ala Moana"},
	{RegionWestSide, RegionWaikiki, []string{"42", "C"}, "Route 42 Ewa Beach-Waikiki or Country Express"},
	{RegionCentral, RegionTownCenter, []string{"52", "A"}, "Route 52 Wahiawa-Circle Isle or CityExpress A"},
	{RegionNorthShore, RegionTownCenter, []string{"52", "60"}, "Circle Isle routes 52/60 toward town"},
	{RegionWindward, RegionTownCenter, []string{"56", "57", "65"}, "Routes 56/57/65 over the Pali and Likelike"},
	{RegionEastHonolulu, RegionTownCenter, []string{"1", "1L", "23"}, "Route 1 Kalihi-Hawaii Kai or 23 Hawaii Kai-Ala Moana"},
	{RegionTownCenter, RegionWaikiki, []string{"8", "2", "13", "20", "23", "42"}, "Frequent Ala Moana-Waikiki routes"},
	{RegionEastHonolulu, RegionWaikiki, []string{"23", "22"}, "Routes 22/23 along the Kahala corridor"},
}

// heuristicSuggestions returns degraded-confidence itineraries for the
// region pair, in table order. The table is symmetric: a corridor matches
// either direction of travel.
func heuristicSuggestions(origin, dest models.CoordinatePoint, class PassengerClass, hasTransferCredential bool) []models.Itinerary {
	from := regionFor(origin)
	to := regionFor(dest)
	if from == RegionUnknown || to == RegionUnknown || from == to {
		return nil
	}

	var itineraries []models.Itinerary
	for _, c := range corridorTable {
		if !(c.from == from && c.to == to) && !(c.from == to && c.to == from) {
			continue
		}
		for _, routeName := range c.routes {
			itineraries = append(itineraries, heuristicItinerary(origin, dest, routeName, c.summary, class, hasTransferCredential))
		}
	}
	return itineraries
}

func heuristicItinerary(origin, dest models.CoordinatePoint, routeName, summary string, class PassengerClass, hasTransferCredential bool) models.Itinerary {
	distance := geo.Haversine(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	duration := transitDuration(distance)
	cost := CalculateTripCost(class, 1, hasTransferCredential)

	leg := models.Leg{
		Mode:           models.LegModeTransit,
		RouteID:        routeName,
		RouteName:      routeName,
		From:           origin,
		To:             dest,
		DistanceMeters: distance,
		Duration:       duration,
		DurationSecs:   int(duration.Seconds()),
		Cost:           cost,
	}

	return models.Itinerary{
		Legs:      []models.Leg{leg},
		Duration:  duration,
		Transfers: 0,
		Cost:      cost,
		Heuristic: true,
		Summary:   summary,
	}
}
