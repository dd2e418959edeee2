package copilot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/models"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newFleetCopilot(t *testing.T) *Copilot {
	t.Helper()
	snapshot, err := models.LoadFleetSnapshot(models.GetFixturePath(t, "fleet.yaml"))
	require.NoError(t, err)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return New(snapshot, clock.NewMockClock(testNow), loc)
}

func TestProcessWithdraw(t *testing.T) {
	c := newFleetCopilot(t)
	resp := c.Process(context.Background(), Request{Prompt: "Withdraw KMRC 002 due to HVAC fault"})

	assert.Equal(t, "req_1748736000000", resp.RequestID)
	assert.Equal(t, IntentWithdraw, resp.Intent)
	require.Len(t, resp.Preview.Changes, 2)

	withdrawn := resp.Preview.Changes[0]
	assert.Equal(t, "KMRC 002", withdrawn.TrainID)
	assert.Equal(t, models.ActionStandby, withdrawn.Action)
	assert.Equal(t, 0.0, withdrawn.Score)
	assert.Equal(t, "Withdrawn due to: HVAC fault", withdrawn.Reason)

	replacement := resp.Preview.Changes[1]
	assert.Equal(t, "T05", replacement.TrainID, "T03 is standby but its rolling stock certificate has lapsed")
	assert.Equal(t, models.ActionRevenue, replacement.Action)
	assert.Equal(t, "Replacement for withdrawn train KMRC 002", replacement.Reason)

	assert.Equal(t, Metrics{Impact: "Service maintained with standby replacement", Feasibility: 0.9, EstimatedDelay: 5}, resp.Preview.Metrics)
	assert.Equal(t, "Withdrawing KMRC 002 and replacing with standby train T05. Service continuity maintained.", resp.Preview.Reasoning)
	assert.Len(t, resp.Alternatives, 2)
	assert.True(t, resp.RequiresApproval)
	assert.Nil(t, resp.ModifiedSchedule)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		setup  func(c *Copilot)
		want   string
	}{
		{
			name:   "withdraw without train",
			prompt: "Withdraw the faulty rake",
			want:   "No train specified for withdrawal",
		},
		{
			name:   "withdraw unknown train",
			prompt: "Withdraw KMRC 099",
			want:   "Train KMRC 099 not found",
		},
		{
			name:   "withdraw without ready standby",
			prompt: "Withdraw KMRC 001",
			setup: func(c *Copilot) {
				c.snapshot.FindTrain("T05").Status = models.StatusRevenue
				c.snapshot.FindTrain("T06").Status = models.StatusRevenue
			},
			want: "No standby trains available for replacement",
		},
		{
			name:   "short turn without train",
			prompt: "Short turn at Kaloor",
			want:   "No train specified for short turn",
		},
		{
			name:   "gap fill without ready standby",
			prompt: "Fill the gap",
			setup: func(c *Copilot) {
				c.snapshot.Trains = c.snapshot.Trains[:2]
			},
			want: "No standby trains available for gap filling",
		},
		{
			name:   "skip stop without station",
			prompt: "Skip the next stop",
			want:   "No station specified for skip stop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFleetCopilot(t)
			if tt.setup != nil {
				tt.setup(c)
			}
			resp := c.Process(context.Background(), Request{Prompt: tt.prompt})

			assert.Equal(t, tt.want, resp.Preview.Reasoning)
			assert.Equal(t, "Error", resp.Preview.Metrics.Impact)
			assert.Zero(t, resp.Preview.Metrics.Feasibility)
			assert.Zero(t, resp.Confidence)
			assert.False(t, resp.RequiresApproval)
			assert.Empty(t, resp.Alternatives)
			assert.NotNil(t, resp.Alternatives)
			assert.Empty(t, resp.Preview.Changes)
		})
	}
}

func TestProcessShortTurn(t *testing.T) {
	c := newFleetCopilot(t)
	resp := c.Process(context.Background(), Request{Prompt: "Short turn KMRC 001 at Kaloor"})

	require.Len(t, resp.Preview.Changes, 1)
	change := resp.Preview.Changes[0]
	assert.Equal(t, "Short turn at Kaloor due to: operational requirement", change.Reason)
	assert.Equal(t, []string{"Modified service pattern"}, change.Constraints)
	assert.Equal(t, []string{"TB-1"}, change.TripAssignments)
	assert.Equal(t, "Service will terminate early at Kaloor", resp.Preview.Metrics.Impact)
	assert.Equal(t, 2, resp.Preview.Metrics.EstimatedDelay)
	assert.Equal(t, 0.8, resp.Confidence)
}

func TestProcessShortTurnDefaultsStation(t *testing.T) {
	c := newFleetCopilot(t)
	resp := c.Process(context.Background(), Request{Prompt: "Turn back KMRC 005"})

	assert.Equal(t, "Short turn at intermediate station due to: operational requirement", resp.Preview.Changes[0].Reason)
	assert.Equal(t, "Service will terminate early at designated station", resp.Preview.Metrics.Impact)
}

func TestProcessGapFillAndInject(t *testing.T) {
	c := newFleetCopilot(t)
	for _, prompt := range []string{"Fill the gap due to late running", "Inject a standby train due to late running"} {
		resp := c.Process(context.Background(), Request{Prompt: prompt})
		require.Len(t, resp.Preview.Changes, 1, prompt)
		assert.Equal(t, "T05", resp.Preview.Changes[0].TrainID)
		assert.Equal(t, "Gap fill service due to: late running", resp.Preview.Changes[0].Reason)
		assert.Equal(t, gapFillMetrics, resp.Preview.Metrics)
		assert.Equal(t, 0.9, resp.Confidence)
	}
}

func TestProcessSkipStop(t *testing.T) {
	c := newFleetCopilot(t)
	resp := c.Process(context.Background(), Request{Prompt: "Skip stop at Kaloor"})

	require.Len(t, resp.Preview.Changes, 1)
	assert.Equal(t, "multiple", resp.Preview.Changes[0].TrainID)
	assert.Equal(t, "Trains will skip Kaloor station", resp.Preview.Metrics.Impact)
	assert.Equal(t, 1, resp.Preview.Metrics.EstimatedDelay)
	assert.Equal(t, 0.7, resp.Confidence)
}

func TestProcessGeneric(t *testing.T) {
	c := newFleetCopilot(t)
	resp := c.Process(context.Background(), Request{Prompt: "How is the line looking"})

	assert.Equal(t, IntentGeneric, resp.Intent)
	assert.Empty(t, resp.Preview.Changes)
	assert.Equal(t, "No specific action identified", resp.Preview.Metrics.Impact)
	assert.Equal(t, 0.3, resp.Confidence)
	assert.False(t, resp.RequiresApproval)
	require.Len(t, resp.Alternatives, 1)
	assert.Equal(t, "Clarify request", resp.Alternatives[0].Option)
}

func TestCommands(t *testing.T) {
	commands, err := Commands()
	require.NoError(t, err)
	require.Len(t, commands, 4)

	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Command)
		assert.Len(t, c.Examples, 3)
	}
	assert.Equal(t, []string{"withdraw", "short_turn", "gap_fill", "skip_stop"}, names)
}
