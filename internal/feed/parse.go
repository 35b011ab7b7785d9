package feed

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// Diagnostics reports non-fatal problems found while parsing a feed archive.
type Diagnostics struct {
	// SkippedRows counts unparsable rows per table. Skipped rows are not
	// fatal; the rest of the table is still used.
	SkippedRows map[string]int `json:"skippedRows,omitempty"`

	// ZeroCoordinateStops counts stops whose lat/lon failed to parse and
	// were coerced to 0.0. Such stops are excluded from the spatial index.
	ZeroCoordinateStops int `json:"zeroCoordinateStops"`

	// MissingOptionalTables lists optional tables absent from the archive.
	MissingOptionalTables []string `json:"missingOptionalTables,omitempty"`

	// FeedVersion is taken from feed_info.txt when present.
	FeedVersion string `json:"feedVersion,omitempty"`
}

func newDiagnostics() *Diagnostics {
	return &Diagnostics{SkippedRows: make(map[string]int)}
}

func (d *Diagnostics) skip(table string) {
	d.SkippedRows[table]++
}

// TotalSkippedRows sums skipped rows across all tables.
func (d *Diagnostics) TotalSkippedRows() int {
	total := 0
	for _, n := range d.SkippedRows {
		total += n
	}
	return total
}

// parsedFeed holds typed records parsed from the archive before the snapshot
// is assembled.
type parsedFeed struct {
	stops     []models.Stop
	routes    []models.Route
	trips     []models.Trip
	stopTimes []models.StopTimeEntry
}

var requiredTables = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// parseArchive parses a zipped feed into typed records. Each of the four
// required tables must be present and yield at least a readable header;
// individual bad rows are skipped and counted in diagnostics.
func parseArchive(data []byte) (*parsedFeed, *Diagnostics, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening archive: %v", ErrParse, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		// Some feeds nest tables under a directory inside the zip.
		name := f.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		if _, ok := files[name]; !ok {
			files[name] = f
		}
	}

	for _, table := range requiredTables {
		if _, ok := files[table]; !ok {
			return nil, nil, fmt.Errorf("%w: required table %s missing from archive", ErrParse, table)
		}
	}

	diags := newDiagnostics()
	parsed := &parsedFeed{}

	if err := readTable(files["stops.txt"], "stops.txt", diags, func(row record) {
		parseStopRow(row, parsed, diags)
	}); err != nil {
		return nil, nil, fmt.Errorf("%w: stops.txt: %v", ErrParse, err)
	}
	if err := readTable(files["routes.txt"], "routes.txt", diags, func(row record) {
		parseRouteRow(row, parsed, diags)
	}); err != nil {
		return nil, nil, fmt.Errorf("%w: routes.txt: %v", ErrParse, err)
	}
	if err := readTable(files["trips.txt"], "trips.txt", diags, func(row record) {
		parseTripRow(row, parsed, diags)
	}); err != nil {
		return nil, nil, fmt.Errorf("%w: trips.txt: %v", ErrParse, err)
	}
	if err := readTable(files["stop_times.txt"], "stop_times.txt", diags, func(row record) {
		parseStopTimeRow(row, parsed, diags)
	}); err != nil {
		return nil, nil, fmt.Errorf("%w: stop_times.txt: %v", ErrParse, err)
	}

	if f, ok := files["feed_info.txt"]; ok {
		readFeedVersion(f, diags)
	} else {
		diags.MissingOptionalTables = append(diags.MissingOptionalTables, "feed_info.txt")
	}

	return parsed, diags, nil
}

// record is one CSV row paired with the table's header index.
type record struct {
	fields []string
	header map[string]int
}

// get returns the named column's value, or "" when the column is absent or
// the row is short.
func (r record) get(key string) string {
	idx, ok := r.header[key]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		idx[name] = i
	}
	return idx
}

func readTable(f *zip.File, table string, diags *Diagnostics, consume func(record)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close() // nolint:errcheck

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	header := headerIndex(headerRow)

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Row-local csv errors (bad quoting and the like) skip the row
			// and are counted; anything else ends the table.
			if _, ok := err.(*csv.ParseError); ok {
				diags.skip(table)
				continue
			}
			return err
		}
		consume(record{fields: fields, header: header})
	}
}

func parseStopRow(row record, parsed *parsedFeed, diags *Diagnostics) {
	id := row.get("stop_id")
	if id == "" {
		diags.skip("stops.txt")
		return
	}

	lat, latErr := strconv.ParseFloat(row.get("stop_lat"), 64)
	lon, lonErr := strconv.ParseFloat(row.get("stop_lon"), 64)
	if latErr != nil || lonErr != nil {
		// Coordinates coerced to 0.0, row kept but flagged; the spatial
		// index builder excludes zero-coordinate stops.
		lat, lon = 0, 0
		diags.ZeroCoordinateStops++
	}

	parsed.stops = append(parsed.stops, models.Stop{
		ID:   id,
		Name: row.get("stop_name"),
		Lat:  lat,
		Lon:  lon,
	})
}

func parseRouteRow(row record, parsed *parsedFeed, diags *Diagnostics) {
	id := row.get("route_id")
	if id == "" {
		diags.skip("routes.txt")
		return
	}

	mode := models.RouteModeBus
	// GTFS route_type 0-2 cover tram/subway/rail
	if routeType, err := strconv.Atoi(row.get("route_type")); err == nil && routeType <= 2 {
		mode = models.RouteModeRail
	}

	parsed.routes = append(parsed.routes, models.Route{
		ID:        id,
		ShortName: row.get("route_short_name"),
		LongName:  row.get("route_long_name"),
		Mode:      mode,
	})
}

func parseTripRow(row record, parsed *parsedFeed, diags *Diagnostics) {
	tripID := row.get("trip_id")
	routeID := row.get("route_id")
	if tripID == "" || routeID == "" {
		diags.skip("trips.txt")
		return
	}
	parsed.trips = append(parsed.trips, models.Trip{ID: tripID, RouteID: routeID})
}

func parseStopTimeRow(row record, parsed *parsedFeed, diags *Diagnostics) {
	tripID := row.get("trip_id")
	stopID := row.get("stop_id")
	if tripID == "" || stopID == "" {
		diags.skip("stop_times.txt")
		return
	}
	parsed.stopTimes = append(parsed.stopTimes, models.StopTimeEntry{
		TripID:           tripID,
		StopID:           stopID,
		ScheduledSeconds: parseGTFSTime(row.get("arrival_time")),
	})
}

// parseGTFSTime converts an HH:MM:SS schedule time to seconds after local
// midnight. Hours past 24 are legal in the format (service past midnight).
// Returns -1 when the value is absent or malformed.
func parseGTFSTime(value string) int {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return -1
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || m > 59 || s < 0 || s > 59 {
		return -1
	}
	return h*3600 + m*60 + s
}

func readFeedVersion(f *zip.File, diags *Diagnostics) {
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close() // nolint:errcheck

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	headerRow, err := reader.Read()
	if err != nil {
		return
	}
	header := headerIndex(headerRow)
	fields, err := reader.Read()
	if err != nil {
		return
	}
	diags.FeedVersion = record{fields: fields, header: header}.get("feed_version")
}

// buildStopRoutes derives the stop-to-routes association in two passes:
// trips give trip-to-route, then stop_times rows are folded through that map.
// Stop-time rows reference trips, not routes, so the direct join is not
// possible in a single pass.
func buildStopRoutes(parsed *parsedFeed) map[string][]string {
	tripRoute := make(map[string]string, len(parsed.trips))
	for _, trip := range parsed.trips {
		tripRoute[trip.ID] = trip.RouteID
	}

	stopRoutes := make(map[string][]string)
	for _, st := range parsed.stopTimes {
		routeID, ok := tripRoute[st.TripID]
		if !ok {
			continue
		}
		stopRoutes[st.StopID] = append(stopRoutes[st.StopID], routeID)
	}
	return stopRoutes
}
