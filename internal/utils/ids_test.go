package utils

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	valid := []string{"plan_1748736000000", "KMRL-002", "SH-UP", "KMRL 02", "feed:route.1"}
	for _, id := range valid {
		assert.NoError(t, ValidateID(id), id)
	}

	assert.EqualError(t, ValidateID(""), "id is required")
	assert.EqualError(t, ValidateID(strings.Repeat("x", 101)), "id is too long")
	assert.EqualError(t, ValidateID("../etc/passwd"), "id contains invalid characters")
	assert.EqualError(t, ValidateID("T01;DROP"), "id contains invalid characters")
}

func TestIDContext(t *testing.T) {
	_, ok := GetIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithValidatedID(context.Background(), "T01")
	id, ok := GetIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "T01", id)
}

func TestExtractIDFromParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/ai/plans/plan_1", nil)
	req.SetPathValue("id", "plan_1")
	assert.Equal(t, "plan_1", ExtractIDFromParams(req))
}
