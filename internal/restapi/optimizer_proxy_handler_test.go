package restapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /induction/run", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","inducted":18}`)
	})
	mux.HandleFunc("POST /api/train", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model busy", http.StatusInternalServerError)
	})
	mux.HandleFunc("POST /api/demand/forecast", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"echo": body})
	})
	mux.HandleFunc("GET /api/conflicts/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"conflicts":[{"rule":"branding","status":"warning","reason":"SLA behind"}]}`)
	})
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"reply":"Use the journey planner."}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOptimizerProxyNotConfigured(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	for _, endpoint := range []string{"/api/induction/run", "/api/train", "/api/demand/forecast"} {
		resp, model := postToServer(t, server, endpoint+"?key=TEST", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, endpoint)
		assert.Equal(t, "Induction API URL not configured", model.Text, endpoint)
	}
	for _, endpoint := range []string{"/api/stations", "/api/conflicts"} {
		resp, err := http.Get(server.URL + endpoint + "?key=TEST")
		require.NoError(t, err)
		model := decodeModel(t, resp)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, endpoint)
		assert.Equal(t, "Induction API URL not configured", model.Text, endpoint)
	}
}

func TestOptimizerProxyForwards(t *testing.T) {
	upstream := newUpstream(t)
	api := createTestApi(t, withOptimizer(upstream.URL))
	server := newTestServer(t, api)

	resp, model := postToServer(t, server, "/api/induction/run?key=TEST", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	entry := entryOf(t, model)
	assert.Equal(t, "ok", entry["status"])
	assert.EqualValues(t, 18, entry["inducted"])

	resp, model = postToServer(t, server, "/api/train?key=TEST", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to trigger training", model.Text)

	resp, model = postToServer(t, server, "/api/demand/forecast?key=TEST", map[string]string{"station": "Aluva"})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, map[string]interface{}{"station": "Aluva"}, entryOf(t, model)["echo"])

	resp, model = postToServer(t, server, "/api/demand/forecast?key=TEST", "{broken")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "body")

	resp, err := http.Get(server.URL + "/api/stations?key=TEST")
	require.NoError(t, err)
	model = decodeModel(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch stations", model.Text)
}

func TestTrainConflictsHandler(t *testing.T) {
	t.Run("mock without optimizer", func(t *testing.T) {
		_, resp, model := serveAndRetrieveEndpoint(t, "/api/conflicts/KMRL-002?key=TEST")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		entry := entryOf(t, model)
		assert.Equal(t, "KMRL-002", entry["train_id"])
		conflicts := entry["conflicts"].([]interface{})
		require.Len(t, conflicts, 2)
		assert.Equal(t, "fitness", conflicts[0].(map[string]interface{})["rule"])
	})

	t.Run("odd train has no mock conflicts", func(t *testing.T) {
		_, resp, model := serveAndRetrieveEndpoint(t, "/api/conflicts/KMRL-001?key=TEST")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, entryOf(t, model)["conflicts"])
	})

	t.Run("upstream", func(t *testing.T) {
		upstream := newUpstream(t)
		api := createTestApi(t, withOptimizer(upstream.URL))
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/conflicts/KMRL-002?key=TEST")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		entry := entryOf(t, model)
		assert.Equal(t, "KMRL-002", entry["train_id"])
		conflicts := entry["conflicts"].([]interface{})
		require.Len(t, conflicts, 1)
		assert.Equal(t, "branding", conflicts[0].(map[string]interface{})["rule"])
	})
}

func TestConflictsForTrainIDs(t *testing.T) {
	t.Run("mock without optimizer", func(t *testing.T) {
		_, resp, model := serveAndRetrieveEndpoint(t, "/api/conflicts?key=TEST&trainIds=KMRL-002,KMRL-001,KMRL-002")
		require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

		list, limitExceeded := listOf(t, model)
		assert.False(t, limitExceeded)
		require.Len(t, list, 2)

		first := list[0].(map[string]interface{})
		assert.Equal(t, "KMRL-002", first["train_id"])
		assert.Len(t, first["conflicts"], 2)

		second := list[1].(map[string]interface{})
		assert.Equal(t, "KMRL-001", second["train_id"])
		assert.Empty(t, second["conflicts"])
	})

	t.Run("upstream", func(t *testing.T) {
		upstream := newUpstream(t)
		api := createTestApi(t, withOptimizer(upstream.URL))
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/conflicts?key=TEST&trainIds=KMRL-001&trainIds=KMRL-003")
		require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

		list, _ := listOf(t, model)
		require.Len(t, list, 2)
		for i, id := range []string{"KMRL-001", "KMRL-003"} {
			entry := list[i].(map[string]interface{})
			assert.Equal(t, id, entry["train_id"])
			conflicts := entry["conflicts"].([]interface{})
			require.Len(t, conflicts, 1)
			assert.Equal(t, "branding", conflicts[0].(map[string]interface{})["rule"])
		}
	})

	t.Run("validation", func(t *testing.T) {
		api := createTestApi(t)
		for _, query := range []string{"trainIds=", "trainIds=,,", "trainIds=KMRL%2F1"} {
			resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/conflicts?key=TEST&"+query)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
			assert.Contains(t, fieldErrorsOf(t, model), "trainIds", query)
		}
	})
}

func TestResolveConflictHandler(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	resp, model := postToServer(t, server, "/api/conflicts?key=TEST", map[string]string{"conflictId": "C-7", "action": "resolve"})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, "Conflict C-7 resolved successfully", entryOf(t, model)["message"])

	resp, model = postToServer(t, server, "/api/conflicts?key=TEST", map[string]string{"conflictId": "C-7", "action": "ignore"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []interface{}{"Invalid action"}, fieldErrorsOf(t, model)["action"])

	resp, model = postToServer(t, server, "/api/conflicts?key=TEST", map[string]string{"action": "resolve"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fieldErrorsOf(t, model), "conflictId")
}
