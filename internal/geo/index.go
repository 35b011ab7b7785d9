package geo

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// Index answers nearest-stop queries over a snapshot's stop coordinates.
// It is built once per FeedSnapshot and never mutated afterwards, so it is
// safe for concurrent readers. The R-tree narrows candidates to a bounding
// box; exact filtering and ordering use the haversine distance. When no tree
// is present (nil Index or an Index built with NewLinearIndex) the query
// falls back to a linear scan, which is the brute-force-correct baseline.
type Index struct {
	stops []models.Stop
	tree  *rtree.RTree
}

// NewIndex builds a spatial index over the given stops. Stops with the (0,0)
// zero-coordinate sentinel are excluded: they mark rows whose coordinates
// failed to parse during ingestion.
func NewIndex(stops []models.Stop) *Index {
	idx := &Index{tree: &rtree.RTree{}}
	for _, stop := range stops {
		if stop.Coordinate().IsZero() {
			continue
		}
		idx.stops = append(idx.stops, stop)
	}
	for i := range idx.stops {
		point := [2]float64{idx.stops[i].Lat, idx.stops[i].Lon}
		idx.tree.Insert(point, point, &idx.stops[i])
	}
	return idx
}

// NewLinearIndex builds an index with no spatial partitioning; every query
// scans all stops. Exists to keep the baseline exercised in tests.
func NewLinearIndex(stops []models.Stop) *Index {
	idx := &Index{}
	for _, stop := range stops {
		if stop.Coordinate().IsZero() {
			continue
		}
		idx.stops = append(idx.stops, stop)
	}
	return idx
}

type stopWithDistance struct {
	stop     *models.Stop
	distance float64
}

// Nearest returns up to limit stops within radiusMeters of the given point,
// ordered by ascending distance with ties broken by stop ID. An empty result
// is a normal outcome, never an error. limit <= 0 means no limit.
func (idx *Index) Nearest(lat, lon, radiusMeters float64, limit int) []models.Stop {
	if idx == nil || radiusMeters <= 0 {
		return nil
	}

	var candidates []stopWithDistance
	consider := func(stop *models.Stop) {
		distance := Haversine(lat, lon, stop.Lat, stop.Lon)
		if distance <= radiusMeters {
			candidates = append(candidates, stopWithDistance{stop, distance})
		}
	}

	if idx.tree != nil {
		bounds := BoundsAround(lat, lon, radiusMeters)
		idx.tree.Search(
			[2]float64{bounds.MinLat, bounds.MinLon},
			[2]float64{bounds.MaxLat, bounds.MaxLon},
			func(min, max [2]float64, data interface{}) bool {
				if stop, ok := data.(*models.Stop); ok {
					consider(stop)
				}
				return true
			},
		)
	} else {
		for i := range idx.stops {
			consider(&idx.stops[i])
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].stop.ID < candidates[j].stop.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	stops := make([]models.Stop, len(candidates))
	for i, c := range candidates {
		stops[i] = *c.stop
	}
	return stops
}

// Size returns the number of indexed stops.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.stops)
}
