package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItineraryTransitRouteIDs(t *testing.T) {
	itinerary := Itinerary{
		Legs: []Leg{
			{Mode: LegModeWalk},
			{Mode: LegModeTransit, RouteID: "8"},
			{Mode: LegModeWalk},
			{Mode: LegModeTransit, RouteID: "42"},
		},
	}
	assert.Equal(t, []string{"8", "42"}, itinerary.TransitRouteIDs())

	assert.Nil(t, Itinerary{}.TransitRouteIDs())
}

func TestItineraryDurationSeconds(t *testing.T) {
	itinerary := Itinerary{Duration: 42 * time.Minute}
	assert.Equal(t, 2520, itinerary.DurationSeconds())
}

func TestLegModeString(t *testing.T) {
	assert.Equal(t, "walk", LegModeWalk.String())
	assert.Equal(t, "transit", LegModeTransit.String())
}

func TestLegJSONOmitsAbsentLiveData(t *testing.T) {
	leg := Leg{
		Mode:       LegModeTransit,
		RouteID:    "8",
		FromStopID: "SA",
		ToStopID:   "SB",
	}

	jsonData, err := json.Marshal(leg)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonData, &fields))

	assert.NotContains(t, fields, "predictedArrival")
	assert.NotContains(t, fields, "delaySeconds")
	assert.NotContains(t, fields, "vehicleId")
	assert.Contains(t, fields, "occupancy")
}

func TestOccupancyString(t *testing.T) {
	tests := []struct {
		occupancy Occupancy
		expected  string
	}{
		{OccupancyUnknown, "UNKNOWN"},
		{OccupancyEmpty, "EMPTY"},
		{OccupancyManySeats, "MANY_SEATS_AVAILABLE"},
		{OccupancyFewSeats, "FEW_SEATS_AVAILABLE"},
		{OccupancyStandingRoom, "STANDING_ROOM_ONLY"},
		{OccupancyCrushed, "CRUSHED_STANDING_ROOM_ONLY"},
		{OccupancyFull, "FULL"},
		{Occupancy(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.occupancy.String())
	}
}

func TestOccupancyOrdering(t *testing.T) {
	// The ordinal encodes increasing crowding, so levels compare directly.
	assert.Less(t, OccupancyEmpty, OccupancyManySeats)
	assert.Less(t, OccupancyManySeats, OccupancyStandingRoom)
	assert.Less(t, OccupancyCrushed, OccupancyFull)
}

func TestResponseModelEnvelope(t *testing.T) {
	response := NewOKResponse(map[string]string{"hello": "aloha"})

	assert.Equal(t, 200, response.Code)
	assert.Equal(t, "OK", response.Text)
	assert.Equal(t, 2, response.Version)
	assert.Greater(t, response.CurrentTime, int64(0))

	jsonData, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded ResponseModel
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, response.Code, decoded.Code)
	assert.Equal(t, map[string]interface{}{"hello": "aloha"}, decoded.Data)
}
