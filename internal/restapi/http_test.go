package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"optimetro.kochimetro.org/internal/app"
	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/assistant"
	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/gtfs"
	"optimetro.kochimetro.org/internal/induction"
	"optimetro.kochimetro.org/internal/journey"
	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/optimizer"
	"optimetro.kochimetro.org/internal/peak"
	"optimetro.kochimetro.org/internal/store"
)

// testNow is 2025-06-01 06:30 in Kochi.
var testNow = time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)

type fakeResponder struct {
	reply string
	err   error
}

func (f fakeResponder) Reply(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type testOption func(*app.Application)

// withOptimizer points the proxy endpoints at upstream.
func withOptimizer(upstream string) testOption {
	return func(a *app.Application) {
		a.Optimizer = optimizer.NewClient(upstream, 5*time.Second)
		a.Assistant = assistant.New(a.Optimizer, nil)
	}
}

func withResponder(responder assistant.Responder) testOption {
	return func(a *app.Application) {
		a.Assistant = assistant.New(a.Optimizer, responder)
	}
}

func withRateLimit(rps int) testOption {
	return func(a *app.Application) {
		a.Config.RateLimit = rps
	}
}

func withoutStore() testOption {
	return func(a *app.Application) {
		a.Store = nil
	}
}

func createTestApi(t *testing.T, opts ...testOption) *RestAPI {
	return createTestApiWithClock(t, clock.NewMockClock(testNow), opts...)
}

func createTestApiWithClock(t *testing.T, c clock.Clock, opts ...testOption) *RestAPI {
	t.Helper()
	ctx := context.Background()

	gtfsConfig := gtfs.Config{Env: appconf.Test}
	gtfsManager, err := gtfs.InitGTFSManager(ctx, gtfsConfig)
	require.NoError(t, err)
	t.Cleanup(gtfsManager.Shutdown)

	planStore, err := store.Open(ctx, filepath.Join(t.TempDir(), "optimetro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = planStore.Close() })

	fleet, err := models.LoadFleetSnapshot(models.GetFixturePath(t, "fleet.yaml"))
	require.NoError(t, err)

	cfg := appconf.Config{
		Port:      4000,
		Env:       appconf.Test,
		ApiKeys:   []string{"TEST"},
		RateLimit: 10000,
		Timezone:  "Asia/Kolkata",
	}
	loc := cfg.Location()

	optimizerClient := optimizer.NewClient("", 0)
	application := &app.Application{
		Config:          cfg,
		GtfsConfig:      gtfsConfig,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:           c,
		Location:        loc,
		GtfsManager:     gtfsManager,
		Planner:         journey.NewPlanner(gtfsManager),
		Store:           planStore,
		Fleet:           fleet,
		InductionConfig: induction.DefaultConfig(),
		PeakManager: peak.NewManager(c, loc,
			peak.WithStore(planStore),
			peak.WithRand(rand.New(rand.NewPCG(1, 2)))),
		Optimizer: optimizerClient,
		Assistant: assistant.New(optimizerClient, nil),
	}
	for _, opt := range opts {
		opt(application)
	}
	t.Cleanup(application.PeakManager.Shutdown)
	t.Cleanup(application.Optimizer.Close)

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRequestLoggingMiddleware(api.Logger)(api.SetupAPIRoutes()))
	t.Cleanup(server.Close)
	return server
}

func decodeModel(t *testing.T, resp *http.Response) models.ResponseModel {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var model models.ResponseModel
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(body) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &model), string(body))
	}
	return model
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := newTestServer(t, api)
	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	return resp, decodeModel(t, resp)
}

func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

func postApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string, body interface{}) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := newTestServer(t, api)
	return postToServer(t, server, endpoint, body)
}

func postToServer(t *testing.T, server *httptest.Server, endpoint string, body interface{}) (*http.Response, models.ResponseModel) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
		reader = http.NoBody
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	resp, err := http.Post(server.URL+endpoint, "application/json", reader)
	require.NoError(t, err)
	return resp, decodeModel(t, resp)
}

// entryOf returns the response entry as a generic JSON object.
func entryOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok, "entry is %T", data["entry"])
	return entry
}

func listOf(t *testing.T, model models.ResponseModel) ([]interface{}, bool) {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	list, ok := data["list"].([]interface{})
	require.True(t, ok, "list is %T", data["list"])
	limitExceeded, _ := data["limitExceeded"].(bool)
	return list, limitExceeded
}

func fieldErrorsOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	fieldErrors, ok := data["fieldErrors"].(map[string]interface{})
	require.True(t, ok, "fieldErrors is %T", data["fieldErrors"])
	return fieldErrors
}
