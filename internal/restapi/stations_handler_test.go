package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearbyStationsHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stations/nearby?key=TEST&lat=9.9943&lon=76.2914&radius=1000")
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	list, limitExceeded := listOf(t, model)
	assert.False(t, limitExceeded)
	names := make([]string, 0, len(list))
	for _, item := range list {
		station := item.(map[string]interface{})
		assert.Contains(t, station, "id")
		assert.Contains(t, station, "lat")
		assert.Contains(t, station, "lon")
		names = append(names, station["name"].(string))
	}
	assert.Equal(t, []string{"Kaloor", "Town Hall"}, names)
}

func TestNearbyStationsHandlerLimit(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stations/nearby?key=TEST&lat=9.9943&lon=76.2914&radius=50000&maxCount=3")
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	list, limitExceeded := listOf(t, model)
	assert.Len(t, list, 3)
	assert.True(t, limitExceeded)
	assert.Equal(t, "Kaloor", list[0].(map[string]interface{})["name"])
}

func TestNearbyStationsHandlerValidation(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name   string
		query  string
		fields []string
	}{
		{"missing coordinates", "", []string{"lat", "lon"}},
		{"unparseable", "&lat=north&lon=76.29", []string{"lat"}},
		{"out of range", "&lat=95&lon=76.29", []string{"lat"}},
		{"bad maxCount", "&lat=9.99&lon=76.29&maxCount=1000", []string{"maxCount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/stations/nearby?key=TEST"+tt.query)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			fieldErrors := fieldErrorsOf(t, model)
			for _, field := range tt.fields {
				assert.Contains(t, fieldErrors, field)
			}
		})
	}
}
