package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle distances.
const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two WGS84
// coordinates. This is the single distance implementation shared by stop
// proximity queries and the heuristic corridor fallback, so both agree
// exactly on edge cases.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// BearingBetweenPoints calculates the bearing in degrees from point 1 to point 2.
func BearingBetweenPoints(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(deltaLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLon)

	theta := math.Atan2(y, x)
	return math.Mod(theta*180/math.Pi+360, 360)
}

// CoordinateBounds is a latitude/longitude bounding box.
type CoordinateBounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns the bounding box covering a radius in meters around a
// point. One degree of latitude is ~111 km; longitude degrees shrink with
// the cosine of the latitude.
func BoundsAround(lat, lon, radiusMeters float64) CoordinateBounds {
	latDegreeInMeters := 111000.0
	lonDegreeInMeters := 111000.0 * math.Cos(lat*math.Pi/180)
	if lonDegreeInMeters < 1 {
		lonDegreeInMeters = 1
	}

	latRadius := radiusMeters / latDegreeInMeters
	lonRadius := radiusMeters / lonDegreeInMeters

	return CoordinateBounds{
		MinLat: lat - latRadius,
		MaxLat: lat + latRadius,
		MinLon: lon - lonRadius,
		MaxLon: lon + lonRadius,
	}
}
