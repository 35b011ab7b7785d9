// Package planner produces ranked multi-modal itineraries from the current
// feed snapshot, live arrival data and a set of fallback strategies.
package planner

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/feed"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/geo"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/realtime"
)

// Speed assumptions for duration estimates when no richer schedule data is
// available. Bus speed includes stop dwell time.
const (
	walkSpeedMetersPerSec = 1.4
	busSpeedMetersPerSec  = 7.0
)

// defaultSearchRadius is how far from the origin/destination boarding and
// alighting stops are considered. Doubled once when the first query finds
// nothing.
const defaultSearchRadius = 500.0

// maxStopCandidates bounds how many boarding/alighting stops each side of
// the search considers.
const maxStopCandidates = 5

// Request is one trip-planning request, already resolved to coordinates.
type Request struct {
	Origin    models.CoordinatePoint
	Dest      models.CoordinatePoint
	Departure time.Time

	Class                 PassengerClass
	HasTransferCredential bool

	// SkipRealtime disables live-arrival reconciliation for this request.
	SkipRealtime bool
}

// Planner orchestrates the strategy chain: direct routes, then a bounded
// single-transfer search, then the heuristic corridor table. The first
// strategy to yield candidates wins; later ones are not consulted. The
// planner reads only the current snapshot and acquires no exclusive locks,
// so any number of requests may plan in parallel.
type Planner struct {
	store      *feed.Store
	reconciler *realtime.Reconciler
	geocoder   Geocoder
	directions DirectionsProvider
	logger     *slog.Logger
}

func New(store *feed.Store, reconciler *realtime.Reconciler, geocoder Geocoder, logger *slog.Logger) *Planner {
	return &Planner{
		store:      store,
		reconciler: reconciler,
		geocoder:   geocoder,
		logger:     logger,
	}
}

// WithDirectionsProvider attaches an optional directions backend used for
// non-transit mode comparisons. Returns the planner for chaining.
func (p *Planner) WithDirectionsProvider(provider DirectionsProvider) *Planner {
	p.directions = provider
	return p
}

// alternativeModes are the non-transit modes offered for comparison next to
// transit itineraries.
var alternativeModes = []string{"walking", "driving"}

// ModeAlternatives fetches walk and drive summaries for the same endpoints
// so callers can show them alongside transit itineraries. Returns nil when
// no provider is configured or the endpoints are unresolved; provider
// failures degrade to missing modes.
func (p *Planner) ModeAlternatives(ctx context.Context, origin, dest models.CoordinatePoint) map[string]RouteSummary {
	if p.directions == nil || origin.IsZero() || dest.IsZero() {
		return nil
	}
	summaries := FetchModeSummaries(ctx, p.directions, origin, dest, alternativeModes, 0)
	for mode, summary := range summaries {
		summary.DurationSecs = int(summary.Duration.Seconds())
		summaries[mode] = summary
	}
	return summaries
}

// strategy is one attempt at producing candidate itineraries. Returns an
// empty slice when it has nothing; the orchestrator moves on to the next.
type strategy func(snap *models.FeedSnapshot, index *geo.Index, req Request) []models.Itinerary

// Plan returns itineraries ordered best first. An empty slice is a valid
// answer meaning no coverage; it is not an error.
func (p *Planner) Plan(ctx context.Context, req Request) ([]models.Itinerary, error) {
	snapshot, index := p.store.Current()

	strategies := []strategy{
		p.directStrategy,
		p.transferStrategy,
		p.heuristicStrategy,
	}

	var itineraries []models.Itinerary
	for _, attempt := range strategies {
		itineraries = attempt(snapshot, index, req)
		if len(itineraries) > 0 {
			break
		}
	}

	rankItineraries(itineraries)

	if !req.SkipRealtime && p.reconciler != nil {
		for i := range itineraries {
			if itineraries[i].Heuristic {
				continue
			}
			adjusted, ok := p.reconciler.ReconcileItinerary(ctx, itineraries[i])
			if !ok {
				// Soft failure: scheduled times stand.
				continue
			}
			itineraries[i] = adjusted
		}
	}

	return itineraries, nil
}

// PlanAddresses geocodes both endpoints concurrently, then plans. A
// geocoding failure is terminal for the request: no coordinate, no plan.
func (p *Planner) PlanAddresses(ctx context.Context, originText, destText string, req Request) ([]models.Itinerary, error) {
	if p.geocoder == nil {
		return nil, &GeocodingError{Query: originText}
	}

	type resolution struct {
		coord models.CoordinatePoint
		err   error
	}

	resolve := func(text string, out chan<- resolution) {
		results, err := p.geocoder.Resolve(ctx, text, nil)
		if err != nil {
			out <- resolution{err: &GeocodingError{Query: text, Err: err}}
			return
		}
		if len(results) == 0 {
			out <- resolution{err: &GeocodingError{Query: text}}
			return
		}
		// First result is authoritative.
		out <- resolution{coord: results[0].Coordinate}
	}

	originCh := make(chan resolution, 1)
	destCh := make(chan resolution, 1)
	go resolve(originText, originCh)
	go resolve(destText, destCh)

	origin := <-originCh
	dest := <-destCh
	if origin.err != nil {
		return nil, origin.err
	}
	if dest.err != nil {
		return nil, dest.err
	}

	req.Origin = origin.coord
	req.Dest = dest.coord
	return p.Plan(ctx, req)
}

// nearestWithExpansion queries stops near a point, doubling the radius once
// when the initial search comes up empty.
func nearestWithExpansion(index *geo.Index, p models.CoordinatePoint) []models.Stop {
	stops := index.Nearest(p.Lat, p.Lon, defaultSearchRadius, maxStopCandidates)
	if len(stops) == 0 {
		stops = index.Nearest(p.Lat, p.Lon, defaultSearchRadius*2, maxStopCandidates)
	}
	return stops
}

// directStrategy finds itineraries needing no transfer: boarding and
// alighting stops that share at least one route.
func (p *Planner) directStrategy(snap *models.FeedSnapshot, index *geo.Index, req Request) []models.Itinerary {
	if !snap.HasData() {
		return nil
	}

	boardings := nearestWithExpansion(index, req.Origin)
	alightings := nearestWithExpansion(index, req.Dest)
	if len(boardings) == 0 || len(alightings) == 0 {
		return nil
	}

	var itineraries []models.Itinerary
	for _, board := range boardings {
		for _, alight := range alightings {
			if board.ID == alight.ID {
				continue
			}
			shared := intersectRoutes(snap.RoutesForStop(board.ID), snap.RoutesForStop(alight.ID))
			for _, routeID := range shared {
				itineraries = append(itineraries, p.buildItinerary(snap, req, []transitHop{{board, alight, routeID}}))
			}
		}
	}
	return itineraries
}

// transferStrategy runs the bounded two-hop search. For every route at a
// boarding stop it looks for a stop on that route within walking range of
// a stop that reaches the destination. Itineraries needing two or more
// transfers are never produced.
func (p *Planner) transferStrategy(snap *models.FeedSnapshot, index *geo.Index, req Request) []models.Itinerary {
	if !snap.HasData() {
		return nil
	}

	boardings := nearestWithExpansion(index, req.Origin)
	alightings := nearestWithExpansion(index, req.Dest)
	if len(boardings) == 0 || len(alightings) == 0 {
		return nil
	}

	routeStops := routeStopIndex(snap)

	// Routes that can reach each alighting stop.
	destRoutes := make(map[string][]models.Stop)
	for _, alight := range alightings {
		for _, routeID := range snap.RoutesForStop(alight.ID) {
			destRoutes[routeID] = append(destRoutes[routeID], alight)
		}
	}

	const maxItineraries = 8
	var itineraries []models.Itinerary

	for _, board := range boardings {
		for _, firstRoute := range snap.RoutesForStop(board.ID) {
			for _, midStopID := range routeStops[firstRoute] {
				if midStopID == board.ID {
					continue
				}
				mid := snap.StopByID(midStopID)
				if mid == nil || mid.Coordinate().IsZero() {
					continue
				}

				// Stops near the transfer point that reach the destination.
				connections := index.Nearest(mid.Lat, mid.Lon, defaultSearchRadius, maxStopCandidates)
				for _, conn := range connections {
					for _, secondRoute := range snap.RoutesForStop(conn.ID) {
						if secondRoute == firstRoute {
							continue
						}
						for _, alight := range destRoutes[secondRoute] {
							if alight.ID == conn.ID {
								continue
							}
							itineraries = append(itineraries, p.buildItinerary(snap, req, []transitHop{
								{board, *mid, firstRoute},
								{conn, alight, secondRoute},
							}))
							if len(itineraries) >= maxItineraries {
								return itineraries
							}
						}
					}
				}
			}
		}
	}
	return itineraries
}

// heuristicStrategy is the last resort: hardcoded corridor knowledge keyed
// by coarse region, clearly flagged as degraded confidence.
func (p *Planner) heuristicStrategy(_ *models.FeedSnapshot, _ *geo.Index, req Request) []models.Itinerary {
	suggestions := heuristicSuggestions(req.Origin, req.Dest, req.Class, req.HasTransferCredential)
	if len(suggestions) > 0 {
		logging.LogOperation(p.logger, "heuristic_fallback_used",
			slog.Int("suggestions", len(suggestions)))
	}
	return suggestions
}

// transitHop is one planned vehicle ride between two stops.
type transitHop struct {
	board   models.Stop
	alight  models.Stop
	routeID string
}

// buildItinerary assembles walk and transit legs for the hops, estimates
// durations from distance and per-mode speed, and applies fare rules.
func (p *Planner) buildItinerary(snap *models.FeedSnapshot, req Request, hops []transitHop) models.Itinerary {
	var legs []models.Leg
	var totalDuration time.Duration

	cursor := req.Origin
	clock := req.Departure

	appendLeg := func(leg models.Leg) {
		legs = append(legs, leg)
		totalDuration += leg.Duration
		clock = clock.Add(leg.Duration)
		cursor = leg.To
	}

	var boardingTimes []time.Time
	firstTransit := -1

	for _, hop := range hops {
		boardCoord := hop.board.Coordinate()
		if walk := walkLeg(cursor, boardCoord, "", hop.board.ID); walk.DistanceMeters > 1 {
			appendLeg(walk)
		}

		routeName := hop.routeID
		if route := snap.RouteByID(hop.routeID); route != nil {
			routeName = route.DisplayName()
		}

		boardingTimes = append(boardingTimes, clock)
		distance := geo.Haversine(hop.board.Lat, hop.board.Lon, hop.alight.Lat, hop.alight.Lon)
		duration := transitDuration(distance)
		leg := models.Leg{
			Mode:             models.LegModeTransit,
			RouteID:          hop.routeID,
			RouteName:        routeName,
			FromStopID:       hop.board.ID,
			ToStopID:         hop.alight.ID,
			From:             boardCoord,
			To:               hop.alight.Coordinate(),
			DistanceMeters:   distance,
			Duration:         duration,
			DurationSecs:     int(duration.Seconds()),
			ScheduledArrival: clock.Add(duration),
		}
		if firstTransit == -1 {
			firstTransit = len(legs)
		}
		appendLeg(leg)
	}

	if walk := walkLeg(cursor, req.Dest, legs[len(legs)-1].ToStopID, ""); walk.DistanceMeters > 1 {
		appendLeg(walk)
	}

	// Boarding times drive the fare: with a transfer credential a later
	// boarding past the transfer window opens a new fare. The whole trip
	// fare is attributed to the first transit leg so leg costs sum to the
	// itinerary cost.
	cost := CalculateTimedTripCost(req.Class, boardingTimes, req.HasTransferCredential)
	if firstTransit >= 0 {
		legs[firstTransit].Cost = cost
	}

	return models.Itinerary{
		Legs:      legs,
		Duration:  totalDuration,
		Transfers: len(hops) - 1,
		Cost:      cost,
	}
}

func walkLeg(from, to models.CoordinatePoint, fromStopID, toStopID string) models.Leg {
	distance := geo.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	duration := time.Duration(distance/walkSpeedMetersPerSec) * time.Second
	return models.Leg{
		Mode:           models.LegModeWalk,
		FromStopID:     fromStopID,
		ToStopID:       toStopID,
		From:           from,
		To:             to,
		DistanceMeters: distance,
		Duration:       duration,
		DurationSecs:   int(duration.Seconds()),
	}
}

func transitDuration(distanceMeters float64) time.Duration {
	return time.Duration(distanceMeters/busSpeedMetersPerSec) * time.Second
}

// intersectRoutes returns route IDs present in both sorted sets, preserving
// the first set's order for determinism.
func intersectRoutes(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	var shared []string
	for _, id := range a {
		if _, ok := inB[id]; ok {
			shared = append(shared, id)
		}
	}
	return shared
}

// routeStopIndex inverts the snapshot's stop-to-routes index. Stop IDs per
// route come out sorted because the snapshot's route sets are sorted and
// map iteration is re-sorted here.
func routeStopIndex(snap *models.FeedSnapshot) map[string][]string {
	routeStops := make(map[string][]string)
	for stopID, routeIDs := range snap.StopRoutes {
		for _, routeID := range routeIDs {
			routeStops[routeID] = append(routeStops[routeID], stopID)
		}
	}
	for routeID := range routeStops {
		sort.Strings(routeStops[routeID])
	}
	return routeStops
}

// rankItineraries orders candidates best first: shortest total duration,
// then lowest cost, then fewest transfers. The sort is stable so equal
// candidates keep their discovery order.
func rankItineraries(itineraries []models.Itinerary) {
	sort.SliceStable(itineraries, func(i, j int) bool {
		if itineraries[i].Duration != itineraries[j].Duration {
			return itineraries[i].Duration < itineraries[j].Duration
		}
		if itineraries[i].Cost != itineraries[j].Cost {
			return itineraries[i].Cost < itineraries[j].Cost
		}
		return itineraries[i].Transfers < itineraries[j].Transfers
	})
}
