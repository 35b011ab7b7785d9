package models

// Trip is a single scheduled run of a route. Trips exist only during
// ingestion, to derive stop-to-route associations; they are not retained in
// the snapshot.
type Trip struct {
	ID      string
	RouteID string
}

// StopTimeEntry is one (trip, stop) call from the stop_times table.
type StopTimeEntry struct {
	TripID string
	StopID string
	// ScheduledSeconds is seconds after local midnight; -1 when the feed
	// omits or garbles the time.
	ScheduledSeconds int
}
