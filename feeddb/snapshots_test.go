package feeddb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/appconf"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) // nolint:errcheck
	return client
}

func testSnapshot(ingestedAt time.Time) *models.FeedSnapshot {
	return models.NewFeedSnapshot(
		[]models.Stop{
			{ID: "S1", Name: "King & Alakea", Lat: 21.3090, Lon: -157.8610},
			{ID: "S2", Name: "Ala Moana Center", Lat: 21.2910, Lon: -157.8430},
		},
		[]models.Route{
			{ID: "8", ShortName: "8", LongName: "Waikiki-Ala Moana", Mode: models.RouteModeBus},
			{ID: "SKY", ShortName: "Skyline", Mode: models.RouteModeRail},
		},
		map[string][]string{
			"S1": {"8"},
			"S2": {"8", "SKY"},
		},
		ingestedAt,
	)
}

func TestLoadLatestSnapshotEmptyCache(t *testing.T) {
	client := newTestClient(t)

	snapshot, err := client.LoadLatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ingestedAt := time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC)
	original := testSnapshot(ingestedAt)

	require.NoError(t, client.SaveSnapshot(context.Background(), original))

	loaded, err := client.LoadLatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, ingestedAt.Unix(), loaded.IngestedAt.Unix())

	require.Len(t, loaded.Stops, 2)
	assert.Equal(t, "S1", loaded.Stops[0].ID)
	assert.Equal(t, "King & Alakea", loaded.Stops[0].Name)
	assert.InDelta(t, 21.3090, loaded.Stops[0].Lat, 1e-9)
	assert.Equal(t, []string{"8"}, loaded.Stops[0].RouteIDs)
	assert.Equal(t, []string{"8", "SKY"}, loaded.Stops[1].RouteIDs)

	require.Len(t, loaded.Routes, 2)
	assert.Equal(t, models.RouteModeBus, loaded.RouteByID("8").Mode)
	assert.Equal(t, models.RouteModeRail, loaded.RouteByID("SKY").Mode)

	assert.Equal(t, original.StopRoutes, loaded.StopRoutes)
}

func TestSaveSnapshotPrunesOlderVersions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := testSnapshot(time.Date(2026, 8, 14, 3, 0, 0, 0, time.UTC))
	require.NoError(t, client.SaveSnapshot(ctx, first))

	second := models.NewFeedSnapshot(
		[]models.Stop{{ID: "S9", Name: "New Stop", Lat: 21.33, Lon: -157.90}},
		[]models.Route{{ID: "42", ShortName: "42"}},
		map[string][]string{"S9": {"42"}},
		time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC),
	)
	require.NoError(t, client.SaveSnapshot(ctx, second))

	loaded, err := client.LoadLatestSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Stops, 1)
	assert.Equal(t, "S9", loaded.Stops[0].ID)

	// Cascade delete prunes every child table with the old snapshot.
	var count int
	require.NoError(t, client.DB.QueryRow(`SELECT COUNT(*) FROM snapshots;`).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, client.DB.QueryRow(`SELECT COUNT(*) FROM stops;`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveSnapshotFailureKeepsPreviousVersion(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := testSnapshot(time.Date(2026, 8, 14, 3, 0, 0, 0, time.UTC))
	require.NoError(t, client.SaveSnapshot(ctx, first))

	// A cancelled context aborts the save; the cached version must be
	// left untouched.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := client.SaveSnapshot(cancelled, testSnapshot(time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC)))
	require.Error(t, err)

	loaded, err := client.LoadLatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, first.IngestedAt.Unix(), loaded.IngestedAt.Unix())

	var count int
	require.NoError(t, client.DB.QueryRow(`SELECT COUNT(*) FROM snapshots;`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveSnapshotEmptySnapshot(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.SaveSnapshot(context.Background(), models.EmptyFeedSnapshot()))

	loaded, err := client.LoadLatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.HasData())
}
