package models

// CoordinatePoint is a WGS84 latitude/longitude pair in degrees.
type CoordinatePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the point is the (0,0) null-island sentinel used for
// unparsable coordinates.
func (p CoordinatePoint) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}
