package models

import (
	"sort"
	"time"
)

// FeedSnapshot is the atomic unit of feed state: a consistent set of stops,
// routes and the derived stop-to-routes index, stamped with its ingestion
// time. Readers always observe one complete snapshot; a snapshot is never
// mutated after construction.
type FeedSnapshot struct {
	Stops      []Stop
	Routes     []Route
	StopRoutes map[string][]string
	IngestedAt time.Time

	stopByID  map[string]*Stop
	routeByID map[string]*Route
}

// NewFeedSnapshot builds a snapshot and its internal lookup maps. The
// StopRoutes route ID slices are deduplicated and sorted so that equal feed
// content always produces equal snapshots.
func NewFeedSnapshot(stops []Stop, routes []Route, stopRoutes map[string][]string, ingestedAt time.Time) *FeedSnapshot {
	snapshot := &FeedSnapshot{
		Stops:      stops,
		Routes:     routes,
		StopRoutes: make(map[string][]string, len(stopRoutes)),
		IngestedAt: ingestedAt,
		stopByID:   make(map[string]*Stop, len(stops)),
		routeByID:  make(map[string]*Route, len(routes)),
	}

	for stopID, routeIDs := range stopRoutes {
		snapshot.StopRoutes[stopID] = dedupeSorted(routeIDs)
	}
	for i := range stops {
		snapshot.stopByID[stops[i].ID] = &snapshot.Stops[i]
	}
	for i := range routes {
		snapshot.routeByID[routes[i].ID] = &snapshot.Routes[i]
	}

	return snapshot
}

// EmptyFeedSnapshot returns a snapshot with no stops or routes. Used before
// the first ingestion completes.
func EmptyFeedSnapshot() *FeedSnapshot {
	return NewFeedSnapshot(nil, nil, nil, time.Time{})
}

// StopByID returns the stop with the given ID, or nil.
func (s *FeedSnapshot) StopByID(id string) *Stop {
	return s.stopByID[id]
}

// RouteByID returns the route with the given ID, or nil.
func (s *FeedSnapshot) RouteByID(id string) *Route {
	return s.routeByID[id]
}

// RoutesForStop returns the sorted, deduplicated route IDs serving a stop.
func (s *FeedSnapshot) RoutesForStop(stopID string) []string {
	return s.StopRoutes[stopID]
}

// HasData reports whether the snapshot contains any stops.
func (s *FeedSnapshot) HasData() bool {
	return len(s.Stops) > 0
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
