package models

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"optimetro.kochimetro.org/internal/clock"
)

func TestResponseEnvelopes(t *testing.T) {
	c := clock.NewMockClock(time.UnixMilli(1748736000000))

	entry := NewEntryResponse(map[string]string{"id": "plan_1"}, c)
	assert.Equal(t, http.StatusOK, entry.Code)
	assert.Equal(t, "OK", entry.Text)
	assert.Equal(t, int64(1748736000000), entry.CurrentTime)
	assert.Equal(t, APIVersion, entry.Version)

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":200,"currentTime":1748736000000,"data":{"entry":{"id":"plan_1"}},"text":"OK","version":2}`, string(raw))

	list := NewListResponse([]int{1, 2}, false, c)
	raw, err = json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":200,"currentTime":1748736000000,"data":{"list":[1,2],"limitExceeded":false},"text":"OK","version":2}`, string(raw))

	notFound := NewErrorResponse(http.StatusNotFound, "resource not found", c)
	raw, err = json.Marshal(notFound)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":404,"currentTime":1748736000000,"text":"resource not found","version":2}`, string(raw))

	validation := NewValidationErrorResponse(map[string][]string{"from": {"required"}}, c)
	assert.Equal(t, http.StatusBadRequest, validation.Code)
	assert.Equal(t, FieldErrorsData{FieldErrors: map[string][]string{"from": {"required"}}}, validation.Data)
}
