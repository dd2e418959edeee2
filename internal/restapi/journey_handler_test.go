package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJourneyPlanHandler(t *testing.T) {
	api := createTestApi(t)
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/journeys/plan?key=TEST", map[string]string{
		"from": "Aluva", "to": "Kaloor", "time": "06:50",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	entry := entryOf(t, model)
	assert.Equal(t, "07:00", entry["departureTime"])
	assert.Equal(t, "08:00", entry["arrivalTime"])
	assert.EqualValues(t, 60, entry["totalTime"])
	assert.EqualValues(t, 20, entry["totalFare"])
	assert.NotEmpty(t, entry["route"])

	steps := entry["steps"].([]interface{})
	require.Len(t, steps, 1)
	step := steps[0].(map[string]interface{})
	assert.Equal(t, "KMRL-003", step["trainId"])
	assert.Equal(t, "Platform 1", step["platform"])
}

func TestJourneyPlanHandlerErrors(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)
	const endpoint = "/api/journeys/plan?key=TEST"

	tests := []struct {
		name   string
		body   map[string]string
		status int
		text   string
	}{
		{"missing stations", map[string]string{"from": "Aluva"}, http.StatusBadRequest, "From and to stations are required"},
		{"same station", map[string]string{"from": "Aluva", "to": "Aluva"}, http.StatusBadRequest, "Departure and arrival stations cannot be the same"},
		{"unknown station", map[string]string{"from": "Aluva", "to": "Marine Drive"}, http.StatusNotFound, "No suitable train found for this route"},
		{"bad time", map[string]string{"from": "Aluva", "to": "Kaloor", "time": "7pm"}, http.StatusBadRequest, "validation error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := postToServer(t, server, endpoint, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.text, model.Text)
		})
	}
}
