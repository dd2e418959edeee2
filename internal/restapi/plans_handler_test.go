package restapi

import (
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimetro.kochimetro.org/internal/models"
)

const testPlanID = "plan_1748739600000"

func TestOptimizeHandlerUsesConfiguredFleet(t *testing.T) {
	api := createTestApi(t)
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/ai/optimize?key=TEST", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	entry := entryOf(t, model)
	assert.Equal(t, true, entry["stored"])

	plan, ok := entry["plan"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, testPlanID, plan["id"])

	decisions, ok := plan["decisions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, decisions, len(api.Fleet.Trains))

	explanations, ok := entry["explanations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, explanations, len(decisions))
}

func TestOptimizeHandlerConfigOverrideIsPerRequest(t *testing.T) {
	api := createTestApi(t)
	configured := 42.0
	api.InductionConfig.Seed = &configured
	server := newTestServer(t, api)

	seedOf := func(model models.ResponseModel) float64 {
		plan, ok := entryOf(t, model)["plan"].(map[string]interface{})
		require.True(t, ok)
		seed, ok := plan["seed"].(float64)
		require.True(t, ok)
		return seed
	}

	resp, model := postToServer(t, server, "/api/ai/optimize?key=TEST",
		map[string]interface{}{"config": map[string]interface{}{"seed": 7}})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, 7.0, seedOf(model))

	require.NotNil(t, api.InductionConfig.Seed)
	assert.Equal(t, 42.0, *api.InductionConfig.Seed)

	resp, model = postToServer(t, server, "/api/ai/optimize?key=TEST", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, 42.0, seedOf(model))
}

func TestOptimizeHandlerValidation(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	resp, model := postToServer(t, server, "/api/ai/optimize?key=TEST", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "body")

	resp, model = postToServer(t, server, "/api/ai/optimize?key=TEST",
		map[string]interface{}{"config": map[string]interface{}{"constraints": map[string]int{"maxRun": -1}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "config")

	resp, model = postToServer(t, server, "/api/ai/optimize?key=TEST",
		map[string]interface{}{"snapshot": map[string]interface{}{"trains": []interface{}{}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "snapshot")
}

func TestOptimizeHandlerWithoutStore(t *testing.T) {
	api := createTestApi(t, withoutStore())
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/ai/optimize?key=TEST", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, false, entryOf(t, model)["stored"])

	resp, model = serveApiAndRetrieveEndpoint(t, api, "/api/ai/plans?key=TEST")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "plan store not configured", model.Text)
}

func TestPlansRoundTrip(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	resp, model := postToServer(t, server, "/api/ai/optimize?key=TEST", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	resp, err := http.Get(server.URL + "/api/ai/plans?key=TEST")
	require.NoError(t, err)
	model = decodeModel(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, limitExceeded := listOf(t, model)
	require.Len(t, list, 1)
	assert.False(t, limitExceeded)
	assert.Equal(t, testPlanID, list[0].(map[string]interface{})["id"])

	resp, err = http.Get(server.URL + "/api/ai/plans/" + testPlanID + "?key=TEST")
	require.NoError(t, err)
	model = decodeModel(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testPlanID, entryOf(t, model)["id"])

	resp, err = http.Get(server.URL + "/api/ai/plans/" + testPlanID + "/export?key=TEST")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), testPlanID+".csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(api.Fleet.Trains)+1)
	assert.Equal(t, "train_id", records[0][0])
}

func TestPlanHandlerErrors(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/ai/plans/plan_missing?key=TEST")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "resource not found", model.Text)

	resp, model = serveApiAndRetrieveEndpoint(t, api, "/api/ai/plans/plan%3Cx%3E?key=TEST")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "id")

	resp, _ = serveApiAndRetrieveEndpoint(t, api, "/api/ai/plans?key=TEST&maxCount=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExplainHandler(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	resp, model := postToServer(t, server, "/api/explain?key=TEST", map[string]interface{}{
		"train_id":           "T01",
		"induction_decision": "INDUCT",
		"predicted_demand":   0.9,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	entry := entryOf(t, model)
	assert.Equal(t, "T01", entry["trainId"])

	resp, model = postToServer(t, server, "/api/explain?key=TEST", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fieldErrors := fieldErrorsOf(t, model)
	assert.Contains(t, fieldErrors, "train_id")
	assert.Contains(t, fieldErrors, "induction_decision")
}
