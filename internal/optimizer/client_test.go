package optimizer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClient(server.URL+"/", time.Second)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient("", 0)
	assert.False(t, client.Configured())

	_, err := client.RunInduction(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = client.Stations(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = client.Chat(context.Background(), "hi", "admin")
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestProxyCalls(t *testing.T) {
	type call struct {
		method, path, contentType, body string
	}
	var mu sync.Mutex
	var calls []call

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"path":"` + r.URL.Path + `"}`))
	}))

	ctx := context.Background()
	raw, err := client.RunInduction(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"path":"/induction/run"}`, string(raw))

	_, err = client.Train(ctx)
	require.NoError(t, err)
	_, err = client.Conflicts(ctx)
	require.NoError(t, err)
	_, err = client.Stations(ctx)
	require.NoError(t, err)
	_, err = client.DemandForecast(ctx, json.RawMessage(`{"days":7}`))
	require.NoError(t, err)
	_, err = client.DemandForecast(ctx, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodPost, "/induction/run", "application/json", "{}"},
		{http.MethodPost, "/api/train", "", ""},
		{http.MethodGet, "/api/conflicts", "", ""},
		{http.MethodGet, "/api/stations", "", ""},
		{http.MethodPost, "/api/demand/forecast", "application/json", `{"days":7}`},
		{http.MethodPost, "/api/demand/forecast", "application/json", "{}"},
	}, calls)
}

func TestUpstreamStatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Conflicts(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "/api/conflicts", statusErr.Path)
}

func TestInvalidJSONResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	_, err := client.Stations(context.Background())
	assert.Error(t, err)
}

func TestChat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Role == "admin" {
			_, _ = w.Write([]byte(`{"reply":"run the optimizer"}`))
			return
		}
		_, _ = w.Write([]byte(`{"reply":42}`))
	}))

	reply, err := client.Chat(context.Background(), "how do I plan?", "admin")
	require.NoError(t, err)
	assert.Equal(t, "run the optimizer", reply)

	_, err = client.Chat(context.Background(), "tickets?", "commuter")
	assert.ErrorIs(t, err, ErrNoReply)
}

func TestMockConflicts(t *testing.T) {
	even := MockConflicts("KMRL-012")
	assert.Equal(t, "KMRL-012", even.TrainID)
	require.Len(t, even.Conflicts, 2)
	assert.Equal(t, Conflict{Rule: "fitness", Status: "failed", Reason: "Fitness expired"}, even.Conflicts[0])
	assert.Equal(t, Conflict{Rule: "job_card", Status: "failed", Reason: "Open high-priority job card"}, even.Conflicts[1])

	assert.Empty(t, MockConflicts("KMRL-013").Conflicts)
	assert.NotNil(t, MockConflicts("KMRL-013").Conflicts)
	assert.Empty(t, MockConflicts("KMRL-X").Conflicts)
	assert.Len(t, MockConflicts("").Conflicts, 2)
}

func TestConflictsForTrainFallsBack(t *testing.T) {
	unconfigured := NewClient("", 0)
	assert.Len(t, unconfigured.ConflictsForTrain(context.Background(), "T4").Conflicts, 2)

	failing := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	assert.Empty(t, failing.ConflictsForTrain(context.Background(), "T5").Conflicts)
}

func TestConflictsForTrainUsesUpstream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conflicts/KMRL 02", r.URL.Path)
		_, _ = w.Write([]byte(`{"conflicts":[{"rule":"branding","status":"warning","reason":"SLA at risk"}]}`))
	}))

	result := client.ConflictsForTrain(context.Background(), "KMRL 02")
	assert.Equal(t, "KMRL 02", result.TrainID)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "branding", result.Conflicts[0].Rule)
}

func TestConflictsForTrainsKeepsOrderAndLimitsFanOut(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(`{"conflicts":[]}`))
	}))

	ids := []string{"T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9"}
	results, err := client.ConflictsForTrains(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, results[i].TrainID)
	}
	assert.LessOrEqual(t, peak.Load(), int32(conflictFanOut))
}

func TestConflictsForTrainsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("", 0).ConflictsForTrains(ctx, []string{"T1", "T2"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveConflict(t *testing.T) {
	msg, err := ResolveConflict(ResolveRequest{ConflictID: "C-7", Action: "resolve"})
	require.NoError(t, err)
	assert.Equal(t, "Conflict C-7 resolved successfully", msg)

	_, err = ResolveConflict(ResolveRequest{ConflictID: "C-7", Action: "ignore"})
	assert.ErrorIs(t, err, ErrInvalidAction)
}
