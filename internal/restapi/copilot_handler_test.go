package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopilotHandlerFleetMode(t *testing.T) {
	api := createTestApi(t)
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/ai/copilot?key=TEST", map[string]interface{}{
		"prompt": "Withdraw KMRC 002 due to HVAC fault",
		"mode":   "fleet",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	entry := entryOf(t, model)
	assert.Equal(t, "req_1748739600000", entry["requestId"])
	assert.Equal(t, "withdraw", entry["intent"])

	preview, ok := entry["preview"].(map[string]interface{})
	require.True(t, ok)
	changes, ok := preview["changes"].([]interface{})
	require.True(t, ok)
	require.Len(t, changes, 2)
	assert.Equal(t, "T05", changes[1].(map[string]interface{})["trainId"])
}

func TestCopilotHandlerPlanMode(t *testing.T) {
	api := createTestApi(t)
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/ai/copilot?key=TEST", map[string]interface{}{
		"prompt": "Withdraw KMRC 007 due to brake fault, replace with standby",
		"context": map[string]interface{}{
			"currentPlan": []map[string]string{
				{"trainId": "KMRC 007", "action": "revenue"},
				{"train_id": "KMRC 015", "decision": "standby"},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	entry := entryOf(t, model)
	assert.Equal(t, "withdraw", entry["intent"])
	changes := entry["preview"].(map[string]interface{})["changes"].([]interface{})
	require.Len(t, changes, 2)
	assert.Equal(t, "KMRC 015", changes[1].(map[string]interface{})["trainId"])
}

func TestCopilotHandlerValidation(t *testing.T) {
	api := createTestApi(t)
	resp, model := postApiAndRetrieveEndpoint(t, api, "/api/ai/copilot?key=TEST", map[string]interface{}{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fieldErrors := fieldErrorsOf(t, model)
	assert.Contains(t, fieldErrors, "prompt")
	assert.Contains(t, fieldErrors, "context")
}

func TestCopilotCommandsHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/ai/copilot?key=TEST")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, _ := listOf(t, model)
	require.NotEmpty(t, list)
	command := list[0].(map[string]interface{})
	assert.Contains(t, command, "command")
	assert.Contains(t, command, "description")
	assert.Contains(t, command, "examples")
}
