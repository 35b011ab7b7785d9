package feed

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFeedArchive zips the given tables into an in-memory feed archive.
func buildFeedArchive(t *testing.T, tables map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range tables {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// minimalFeedTables is a valid feed: two stops served by route 8 via trip T1.
func minimalFeedTables() map[string]string {
	return map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,King & Alakea,21.3090,-157.8610\n" +
			"S2,Ala Moana Center,21.2910,-157.8430\n",
		"routes.txt": "route_id,route_short_name,route_long_name,route_type\n" +
			"8,8,Waikiki-Ala Moana,3\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"8,WEEKDAY,T1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n" +
			"T1,08:12:00,08:12:00,S2,2\n",
	}
}

func TestParseArchiveMinimalFeed(t *testing.T) {
	data := buildFeedArchive(t, minimalFeedTables())

	parsed, diags, err := parseArchive(data)
	require.NoError(t, err)

	require.Len(t, parsed.stops, 2)
	assert.Equal(t, "S1", parsed.stops[0].ID)
	assert.Equal(t, "King & Alakea", parsed.stops[0].Name)
	assert.InDelta(t, 21.3090, parsed.stops[0].Lat, 1e-9)

	require.Len(t, parsed.routes, 1)
	assert.Equal(t, "8", parsed.routes[0].ID)

	require.Len(t, parsed.trips, 1)
	require.Len(t, parsed.stopTimes, 2)
	assert.Equal(t, 8*3600, parsed.stopTimes[0].ScheduledSeconds)

	assert.Equal(t, 0, diags.TotalSkippedRows())
	assert.Equal(t, 0, diags.ZeroCoordinateStops)
	assert.Contains(t, diags.MissingOptionalTables, "feed_info.txt")
}

func TestParseArchiveMissingRequiredTable(t *testing.T) {
	for _, table := range requiredTables {
		t.Run(table, func(t *testing.T) {
			tables := minimalFeedTables()
			delete(tables, table)
			data := buildFeedArchive(t, tables)

			_, _, err := parseArchive(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), table)
		})
	}
}

func TestParseArchiveNotAZip(t *testing.T) {
	_, _, err := parseArchive([]byte("this is not a zip archive"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseArchiveSkipsBadRows(t *testing.T) {
	tables := minimalFeedTables()
	// Rows missing their identifier are skipped, not fatal.
	tables["stops.txt"] += ",Orphan Stop,21.30,-157.85\n"
	tables["trips.txt"] += "8,WEEKDAY,\n"
	data := buildFeedArchive(t, tables)

	parsed, diags, err := parseArchive(data)
	require.NoError(t, err)

	assert.Len(t, parsed.stops, 2)
	assert.Len(t, parsed.trips, 1)
	assert.Equal(t, 1, diags.SkippedRows["stops.txt"])
	assert.Equal(t, 1, diags.SkippedRows["trips.txt"])
	assert.Equal(t, 2, diags.TotalSkippedRows())
}

func TestParseArchiveStripsHeaderBOM(t *testing.T) {
	tables := minimalFeedTables()
	tables["stops.txt"] = "\uFEFF" + tables["stops.txt"]
	data := buildFeedArchive(t, tables)

	parsed, diags, err := parseArchive(data)
	require.NoError(t, err)

	// The stop_id column must resolve despite the byte-order mark.
	require.Len(t, parsed.stops, 2)
	assert.Equal(t, "S1", parsed.stops[0].ID)
	assert.Equal(t, 0, diags.TotalSkippedRows())
}

func TestParseArchiveCountsQuotingErrors(t *testing.T) {
	tables := minimalFeedTables()
	tables["stop_times.txt"] += "T1,08:20:00,08:20:00,S\"1,3\n"
	data := buildFeedArchive(t, tables)

	parsed, diags, err := parseArchive(data)
	require.NoError(t, err)

	assert.Len(t, parsed.stopTimes, 2)
	assert.Equal(t, 1, diags.SkippedRows["stop_times.txt"])
}

func TestParseArchiveCoercesBadCoordinates(t *testing.T) {
	tables := minimalFeedTables()
	tables["stops.txt"] += "S3,Broken Stop,not-a-number,-157.85\n"
	data := buildFeedArchive(t, tables)

	parsed, diags, err := parseArchive(data)
	require.NoError(t, err)

	// The row is kept with the zero-coordinate sentinel, and flagged.
	require.Len(t, parsed.stops, 3)
	assert.Equal(t, "S3", parsed.stops[2].ID)
	assert.Equal(t, 0.0, parsed.stops[2].Lat)
	assert.Equal(t, 0.0, parsed.stops[2].Lon)
	assert.Equal(t, 1, diags.ZeroCoordinateStops)
}

func TestParseArchiveReadsFeedInfo(t *testing.T) {
	tables := minimalFeedTables()
	tables["feed_info.txt"] = "feed_publisher_name,feed_version\nTheBus,2026-08-15\n"
	data := buildFeedArchive(t, tables)

	_, diags, err := parseArchive(data)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", diags.FeedVersion)
	assert.NotContains(t, diags.MissingOptionalTables, "feed_info.txt")
}

func TestParseArchiveHandlesNestedDirectories(t *testing.T) {
	tables := minimalFeedTables()
	nested := make(map[string]string, len(tables))
	for name, content := range tables {
		nested["google_transit/"+name] = content
	}
	data := buildFeedArchive(t, nested)

	parsed, _, err := parseArchive(data)
	require.NoError(t, err)
	assert.Len(t, parsed.stops, 2)
}

func TestParseGTFSTime(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"08:00:00", 28800},
		{"00:00:00", 0},
		{"23:59:59", 86399},
		// Hours past 24 mark service after midnight and are legal.
		{"25:30:00", 91800},
		{"", -1},
		{"8:00", -1},
		{"08:61:00", -1},
		{"08:00:-5", -1},
		{"ab:cd:ef", -1},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseGTFSTime(tt.value))
		})
	}
}

func TestBuildStopRoutes(t *testing.T) {
	data := buildFeedArchive(t, minimalFeedTables())
	parsed, _, err := parseArchive(data)
	require.NoError(t, err)

	stopRoutes := buildStopRoutes(parsed)
	assert.Equal(t, []string{"8"}, stopRoutes["S1"])
	assert.Equal(t, []string{"8"}, stopRoutes["S2"])
}

func TestBuildStopRoutesIgnoresUnknownTrips(t *testing.T) {
	tables := minimalFeedTables()
	tables["stop_times.txt"] += "GHOST,09:00:00,09:00:00,S1,1\n"
	data := buildFeedArchive(t, tables)

	parsed, _, err := parseArchive(data)
	require.NoError(t, err)

	stopRoutes := buildStopRoutes(parsed)
	assert.Equal(t, []string{"8"}, stopRoutes["S1"])
}
