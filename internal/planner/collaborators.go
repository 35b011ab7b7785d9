package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// GeocodeResult is one candidate resolution of a free-text place query.
type GeocodeResult struct {
	Coordinate models.CoordinatePoint
	Label      string
}

// Geocoder resolves place text to coordinates. The first result is taken as
// authoritative; an empty result set is a normal outcome. No particular
// provider is assumed.
type Geocoder interface {
	Resolve(ctx context.Context, text string, bias *models.CoordinatePoint) ([]GeocodeResult, error)
}

// GeocodingError means an address could not be resolved. It is fatal to the
// request that needed it: without a coordinate no planning is possible.
type GeocodingError struct {
	Query string
	Err   error
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocoding %q: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("geocoding %q: no results", e.Query)
}

func (e *GeocodingError) Unwrap() error { return e.Err }

// RouteSummary is a directions result for one travel mode.
type RouteSummary struct {
	Mode           string        `json:"mode"`
	Polyline       string        `json:"polyline,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationSecs   int           `json:"durationSecs"`
	DistanceMeters float64       `json:"distanceMeters"`
}

// DirectionsProvider returns point-to-point directions for a single mode.
// Considered unreliable: callers apply timeouts and treat failure as "no
// data" for that mode.
type DirectionsProvider interface {
	Route(ctx context.Context, origin, dest models.CoordinatePoint, mode string) (RouteSummary, error)
}

// FetchModeSummaries requests directions for each mode concurrently against
// the same origin/destination pair. Each call gets its own timeout; a slow
// or failed mode is simply absent from the result, it never blocks the rest.
func FetchModeSummaries(ctx context.Context, provider DirectionsProvider, origin, dest models.CoordinatePoint, modes []string, perCallTimeout time.Duration) map[string]RouteSummary {
	if provider == nil || len(modes) == 0 {
		return nil
	}
	if perCallTimeout <= 0 {
		perCallTimeout = 3 * time.Second
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	summaries := make(map[string]RouteSummary, len(modes))

	for _, mode := range modes {
		wg.Add(1)
		go func(mode string) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
			defer cancel()

			summary, err := provider.Route(callCtx, origin, dest, mode)
			if err != nil {
				return
			}
			mu.Lock()
			summaries[mode] = summary
			mu.Unlock()
		}(mode)
	}

	wg.Wait()
	return summaries
}
