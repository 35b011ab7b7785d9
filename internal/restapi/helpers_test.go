package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/app"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/appconf"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/feed"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/planner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSnapshot has two downtown stops sharing route 8.
func testSnapshot() *models.FeedSnapshot {
	snapshot := models.NewFeedSnapshot(
		[]models.Stop{
			{ID: "SA", Name: "King & Alakea", Lat: 21.30, Lon: -157.86},
			{ID: "SB", Name: "Ala Moana Center", Lat: 21.29, Lon: -157.84},
		},
		[]models.Route{
			{ID: "8", ShortName: "8", LongName: "Waikiki-Ala Moana"},
		},
		map[string][]string{
			"SA": {"8"},
			"SB": {"8"},
		},
		time.Now(),
	)
	for i := range snapshot.Stops {
		snapshot.Stops[i].RouteIDs = snapshot.RoutesForStop(snapshot.Stops[i].ID)
	}
	return snapshot
}

func createTestAPI(t *testing.T, snapshot *models.FeedSnapshot) *RestAPI {
	t.Helper()

	logger := testLogger()
	store := feed.NewStaticStore(snapshot, logger)

	application := &app.Application{
		Config:    app.Config{Env: appconf.Test},
		Logger:    logger,
		FeedStore: store,
		Planner:   planner.New(store, nil, nil, logger),
	}
	return NewRestAPI(application)
}

// serveAndRetrieveEndpoint hits the full router and decodes the envelope.
func serveAndRetrieveEndpoint(t *testing.T, api *RestAPI, method, path string) (*http.Response, models.ResponseModel) {
	t.Helper()

	server := httptest.NewServer(api.Routes())
	defer server.Close()

	req, err := http.NewRequest(method, server.URL+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

// retrieveRawBody hits the router and returns the undecoded body, for error
// responses that do not use the standard envelope.
func retrieveRawBody(t *testing.T, api *RestAPI, method, path string) (*http.Response, []byte) {
	t.Helper()

	server := httptest.NewServer(api.Routes())
	defer server.Close()

	req, err := http.NewRequest(method, server.URL+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func dataAsMap(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}
