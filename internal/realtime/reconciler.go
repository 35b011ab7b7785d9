package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// ArrivalSource supplies live arrivals for a stop. Satisfied by *Client;
// tests use a stub.
type ArrivalSource interface {
	ArrivalsForStop(stopID string) []models.RealtimeArrival
}

// Reconciler merges live arrival predictions into scheduled transit legs.
// It never fails a plan: any problem leaves the leg unchanged and sets a
// soft-failure flag on the result.
type Reconciler struct {
	source  ArrivalSource
	logger  *slog.Logger
	timeout time.Duration
}

func NewReconciler(source ArrivalSource, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		source:  source,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Reconcile matches a scheduled transit leg against live arrivals for its
// boarding stop by (stop, route). When several records match, the soonest
// predicted arrival wins: the closest vehicle is the one the rider will
// board. No match returns the leg exactly as given.
func Reconcile(leg models.Leg, liveArrivals []models.RealtimeArrival) models.Leg {
	if leg.Mode != models.LegModeTransit {
		return leg
	}

	var best *models.RealtimeArrival
	for i := range liveArrivals {
		arrival := &liveArrivals[i]
		if arrival.StopID != leg.FromStopID || arrival.RouteID != leg.RouteID {
			continue
		}
		if best == nil || arrival.Predicted.Before(best.Predicted) {
			best = arrival
		}
	}
	if best == nil {
		return leg
	}

	predicted := best.Predicted
	leg.PredictedArrival = &predicted

	// Delay relative to schedule when a scheduled time exists; otherwise the
	// feed-reported delay is passed through.
	delay := best.DelaySeconds
	if !leg.ScheduledArrival.IsZero() {
		delay = int(predicted.Sub(leg.ScheduledArrival).Seconds())
	}
	leg.DelaySeconds = &delay

	leg.Occupancy = best.Occupancy
	leg.VehicleID = best.VehicleID
	return leg
}

// ReconcileItinerary adjusts every transit leg of an itinerary using live
// data. Returns the adjusted itinerary and false when the live source could
// not be consulted in time; the itinerary is then returned unchanged.
func (r *Reconciler) ReconcileItinerary(ctx context.Context, itinerary models.Itinerary) (models.Itinerary, bool) {
	if r == nil || r.source == nil {
		return itinerary, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type fetchResult struct {
		arrivals map[string][]models.RealtimeArrival
	}

	// The lookup itself is in-memory and fast, but the source interface may
	// be backed by something slower; bound it like any collaborator call.
	resultCh := make(chan fetchResult, 1)
	go func() {
		arrivals := make(map[string][]models.RealtimeArrival)
		for _, leg := range itinerary.Legs {
			if leg.Mode != models.LegModeTransit || leg.FromStopID == "" {
				continue
			}
			if _, ok := arrivals[leg.FromStopID]; ok {
				continue
			}
			arrivals[leg.FromStopID] = r.source.ArrivalsForStop(leg.FromStopID)
		}
		resultCh <- fetchResult{arrivals: arrivals}
	}()

	select {
	case result := <-resultCh:
		for i := range itinerary.Legs {
			leg := itinerary.Legs[i]
			if leg.Mode != models.LegModeTransit {
				continue
			}
			itinerary.Legs[i] = Reconcile(leg, result.arrivals[leg.FromStopID])
		}
		return itinerary, true
	case <-ctx.Done():
		logging.LogError(r.logger, "realtime reconciliation timed out, serving scheduled times", ctx.Err())
		return itinerary, false
	}
}
